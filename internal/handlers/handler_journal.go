package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/dto"
	"github.com/opsledger/backoffice_ledger/internal/middleware"
)

// journalEntryHandler handles HTTP requests for the journal entry lifecycle.
type journalEntryHandler struct {
	entrySvc portssvc.JournalEntrySvcFacade
}

// newJournalEntryHandler creates a new journalEntryHandler.
func newJournalEntryHandler(entrySvc portssvc.JournalEntrySvcFacade) *journalEntryHandler {
	return &journalEntryHandler{entrySvc: entrySvc}
}

// createEntry godoc
// @Summary Create a journal entry
// @Description Creates a new draft journal entry; with autoPost it is posted immediately
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entry body dto.CreateEntryRequest true "Journal entry"
// @Success 201 {object} dto.EntryResponse "The created entry"
// @Failure 400 {object} map[string]string "Invalid request format or unbalanced lines"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Entry ID already used"
// @Failure 500 {object} map[string]string "Failed to create entry"
// @Router /organizations/{organizationID}/journal-entries [post]
func (h *journalEntryHandler) createEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")

	var req dto.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for createEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entrySvc.CreateEntry(c.Request.Context(), organizationID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to create entry")
		return
	}
	c.JSON(http.StatusCreated, dto.ToEntryResponse(entry))
}

// getEntry godoc
// @Summary Get a journal entry
// @Description Retrieves the current snapshot of a journal entry, including lines
// @Tags journal-entries
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Success 200 {object} dto.EntryResponse "The entry snapshot"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 500 {object} map[string]string "Failed to retrieve entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID} [get]
func (h *journalEntryHandler) getEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	entryID := c.Param("entryID")

	entry, err := h.entrySvc.GetEntry(c.Request.Context(), organizationID, entryID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Retrieves the organization's journal entries, optionally filtered by status
// @Tags journal-entries
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   status query string false "Filter by status"
// @Success 200 {object} dto.ListEntriesResponse "The matching entries"
// @Failure 500 {object} map[string]string "Failed to list entries"
// @Router /organizations/{organizationID}/journal-entries [get]
func (h *journalEntryHandler) listEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")

	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Error("Failed to bind query for listEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	entries, err := h.entrySvc.ListEntries(c.Request.Context(), organizationID, params)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to list entries")
		return
	}
	c.JSON(http.StatusOK, dto.ListEntriesResponse{Entries: dto.ToEntryResponses(entries)})
}

// postEntry godoc
// @Summary Post a journal entry
// @Description Posts a Draft or Approved entry into the open period covering its posting date
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.PostEntryRequest false "Posting notes"
// @Success 200 {object} dto.EntryResponse "The posted entry"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry not postable or period not open"
// @Failure 500 {object} map[string]string "Failed to post entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/post [post]
func (h *journalEntryHandler) postEntry(c *gin.Context) {
	h.lifecycleCommand(c, "Failed to post entry", func(c *gin.Context, organizationID, entryID, userID string) (any, error) {
		var req dto.PostEntryRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		entry, err := h.entrySvc.PostEntry(c.Request.Context(), organizationID, entryID, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

// submitEntry godoc
// @Summary Submit a journal entry for approval
// @Description Moves a Draft entry to PendingApproval
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.SubmitEntryRequest false "Submission notes"
// @Success 200 {object} dto.EntryResponse "The submitted entry"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry is not a draft"
// @Failure 500 {object} map[string]string "Failed to submit entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/submit [post]
func (h *journalEntryHandler) submitEntry(c *gin.Context) {
	h.lifecycleCommand(c, "Failed to submit entry", func(c *gin.Context, organizationID, entryID, userID string) (any, error) {
		var req dto.SubmitEntryRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		entry, err := h.entrySvc.SubmitEntry(c.Request.Context(), organizationID, entryID, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

// approveEntry godoc
// @Summary Approve a journal entry
// @Description Approves a Draft or PendingApproval entry
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.ApproveEntryRequest false "Approval notes"
// @Success 200 {object} dto.EntryResponse "The approved entry"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry cannot be approved in its current status"
// @Failure 500 {object} map[string]string "Failed to approve entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/approve [post]
func (h *journalEntryHandler) approveEntry(c *gin.Context) {
	h.lifecycleCommand(c, "Failed to approve entry", func(c *gin.Context, organizationID, entryID, userID string) (any, error) {
		var req dto.ApproveEntryRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		entry, err := h.entrySvc.ApproveEntry(c.Request.Context(), organizationID, entryID, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToEntryResponse(entry), nil
	})
}

// rejectEntry godoc
// @Summary Reject a journal entry
// @Description Rejects a Draft or PendingApproval entry with a reason
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.RejectEntryRequest true "Rejection reason"
// @Success 200 {object} dto.EntryResponse "The rejected entry"
// @Failure 400 {object} map[string]string "Missing rejection reason"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry cannot be rejected in its current status"
// @Failure 500 {object} map[string]string "Failed to reject entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/reject [post]
func (h *journalEntryHandler) rejectEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	entryID := c.Param("entryID")

	var req dto.RejectEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for rejectEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entrySvc.RejectEntry(c.Request.Context(), organizationID, entryID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to reject entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// voidEntry godoc
// @Summary Void a journal entry
// @Description Voids an entry in any pre-post status with a reason
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.VoidEntryRequest true "Void reason"
// @Success 200 {object} dto.EntryResponse "The voided entry"
// @Failure 400 {object} map[string]string "Missing void reason"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry cannot be voided in its current status"
// @Failure 500 {object} map[string]string "Failed to void entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/void [post]
func (h *journalEntryHandler) voidEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	entryID := c.Param("entryID")

	var req dto.VoidEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for voidEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.entrySvc.VoidEntry(c.Request.Context(), organizationID, entryID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to void entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToEntryResponse(entry))
}

// reverseEntry godoc
// @Summary Reverse a posted journal entry
// @Description Creates and posts a new entry with debit/credit swapped, linking the original to it
// @Tags journal-entries
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   entryID path string true "Entry ID"
// @Param   request body dto.ReverseEntryRequest true "Reversal date and reason"
// @Success 201 {object} dto.EntryResponse "The reversing entry"
// @Failure 400 {object} map[string]string "Missing reversal date"
// @Failure 404 {object} map[string]string "Entry not found"
// @Failure 409 {object} map[string]string "Entry not posted, already reversed, or reversal period not open"
// @Failure 500 {object} map[string]string "Failed to reverse entry"
// @Router /organizations/{organizationID}/journal-entries/{entryID}/reverse [post]
func (h *journalEntryHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	entryID := c.Param("entryID")

	var req dto.ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for reverseEntry", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	reversal, err := h.entrySvc.ReverseEntry(c.Request.Context(), organizationID, entryID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to reverse entry")
		return
	}
	c.JSON(http.StatusCreated, dto.ToEntryResponse(reversal))
}

// lifecycleCommand factors the shared shape of the notes-only lifecycle
// endpoints: resolve identity, run the command, respond with the snapshot.
func (h *journalEntryHandler) lifecycleCommand(c *gin.Context, fallbackMsg string, run func(c *gin.Context, organizationID, entryID, userID string) (any, error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	entryID := c.Param("entryID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := run(c, organizationID, entryID, userID)
	if err != nil {
		if errors.Is(err, errBindJSON) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
			return
		}
		respondServiceError(c, logger, err, fallbackMsg)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// registerJournalEntryRoutes registers journal entry specific routes.
func registerJournalEntryRoutes(group *gin.RouterGroup, entrySvc portssvc.JournalEntrySvcFacade) {
	h := newJournalEntryHandler(entrySvc)

	entries := group.Group("/journal-entries")
	{
		entries.POST("", h.createEntry)
		entries.GET("", h.listEntries)
		entries.GET("/:entryID", h.getEntry)
		entries.POST("/:entryID/post", h.postEntry)
		entries.POST("/:entryID/submit", h.submitEntry)
		entries.POST("/:entryID/approve", h.approveEntry)
		entries.POST("/:entryID/reject", h.rejectEntry)
		entries.POST("/:entryID/void", h.voidEntry)
		entries.POST("/:entryID/reverse", h.reverseEntry)
	}
}
