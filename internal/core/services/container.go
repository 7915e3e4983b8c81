package services

import (
	portsrepo "github.com/opsledger/backoffice_ledger/internal/core/ports/repositories"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
)

// ServiceContainer wires the service layer together over a shared event store.
type ServiceContainer struct {
	PeriodSvc       portssvc.PeriodSvcFacade
	JournalEntrySvc portssvc.JournalEntrySvcFacade
}

// NewServiceContainer creates all services. The journal entry service depends
// on the period service for postability checks, so both share one event store.
func NewServiceContainer(eventStore portsrepo.EventStore, accounts portssvc.AccountDirectory, notifier portssvc.PostingNotifier) *ServiceContainer {
	periodSvc := NewPeriodService(eventStore)
	journalEntrySvc := NewJournalEntryService(eventStore, accounts, periodSvc, notifier)
	return &ServiceContainer{
		PeriodSvc:       periodSvc,
		JournalEntrySvc: journalEntrySvc,
	}
}
