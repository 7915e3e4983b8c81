package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/opsledger/backoffice_ledger/internal/adapters/memory"
	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/core/services"
	"github.com/opsledger/backoffice_ledger/internal/dto"
	"github.com/opsledger/backoffice_ledger/internal/handlers"
	"github.com/opsledger/backoffice_ledger/internal/platform/config"
)

// --- Mock AccountDirectory ---
type MockAccountDirectory struct {
	mock.Mock
}

var _ portssvc.AccountDirectory = (*MockAccountDirectory)(nil)

func (m *MockAccountDirectory) ValidateAccount(ctx context.Context, organizationID, accountNumber string) (bool, error) {
	args := m.Called(ctx, organizationID, accountNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountDirectory) GetAccount(ctx context.Context, organizationID, accountNumber string) (*domain.Account, error) {
	args := m.Called(ctx, organizationID, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// --- Test Suite Setup ---
type LedgerAPITestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockAccounts *MockAccountDirectory
	notifier     *memory.PostingNotifier
	jwtSecret    string
	orgID        string
	userID       string
}

func (suite *LedgerAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.orgID = uuid.NewString()
	suite.userID = uuid.NewString()

	suite.mockAccounts = new(MockAccountDirectory)
	suite.notifier = memory.NewPostingNotifier()
	container := services.NewServiceContainer(memory.NewEventStore(), suite.mockAccounts, suite.notifier)

	suite.router = gin.New()
	cfg := &config.Config{JWTSecret: suite.jwtSecret, IsProduction: true}
	handlers.RegisterRoutes(suite.router, cfg, container)
}

// generateTestToken creates a dummy JWT for testing.
func (suite *LedgerAPITestSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "ledger-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *LedgerAPITestSuite) doJSON(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.userID))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *LedgerAPITestSuite) expectAccounts() {
	cash := &domain.Account{OrganizationID: suite.orgID, AccountNumber: "1000", Name: "Cash", AccountType: domain.Asset, NormalBalance: domain.NormalDebit, IsActive: true}
	sales := &domain.Account{OrganizationID: suite.orgID, AccountNumber: "4000", Name: "Sales", AccountType: domain.Revenue, NormalBalance: domain.NormalCredit, IsActive: true}
	suite.mockAccounts.On("GetAccount", mock.Anything, suite.orgID, "1000").Return(cash, nil)
	suite.mockAccounts.On("GetAccount", mock.Anything, suite.orgID, "4000").Return(sales, nil)
}

func (suite *LedgerAPITestSuite) entriesURL() string {
	return fmt.Sprintf("/api/v1/organizations/%s/journal-entries", suite.orgID)
}

func (suite *LedgerAPITestSuite) periodsURL() string {
	return fmt.Sprintf("/api/v1/organizations/%s/periods", suite.orgID)
}

func (suite *LedgerAPITestSuite) createEntryRequest() dto.CreateEntryRequest {
	return dto.CreateEntryRequest{
		EntryID:     uuid.NewString(),
		PostingDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Memo:        "Cash sale",
		Lines: []dto.CreateEntryLineRequest{
			{AccountNumber: "1000", Debit: decimal.NewFromInt(100)},
			{AccountNumber: "4000", Credit: decimal.NewFromInt(100)},
		},
	}
}

func (suite *LedgerAPITestSuite) initializeAndOpenPeriods(upTo int) {
	w := suite.doJSON(http.MethodPost, suite.periodsURL(), dto.InitializePeriodsRequest{
		FiscalYear: 2025,
		StartMonth: 1,
		Frequency:  "MONTHLY",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	for n := 1; n <= upTo; n++ {
		w := suite.doJSON(http.MethodPost, fmt.Sprintf("%s/2025/%d/open", suite.periodsURL(), n), nil)
		suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	}
}

// --- Test Cases ---

func (suite *LedgerAPITestSuite) TestCreateEntry_RequiresAuth() {
	req, _ := http.NewRequest(http.MethodPost, suite.entriesURL(), bytes.NewBufferString("{}"))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *LedgerAPITestSuite) TestCreateEntry_Success() {
	suite.expectAccounts()

	w := suite.doJSON(http.MethodPost, suite.entriesURL(), suite.createEntryRequest())

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.EntryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("DRAFT", resp.Status)
	suite.Equal(suite.orgID, resp.OrganizationID)
	suite.Equal(suite.userID, resp.CreatedBy)
	suite.Len(resp.Lines, 2)
}

func (suite *LedgerAPITestSuite) TestCreateEntry_UnbalancedIs400() {
	req := suite.createEntryRequest()
	req.Lines[1].Credit = decimal.NewFromInt(99)

	w := suite.doJSON(http.MethodPost, suite.entriesURL(), req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "debits must equal credits")
}

func (suite *LedgerAPITestSuite) TestCreateEntry_DuplicateIDIs409() {
	suite.expectAccounts()
	req := suite.createEntryRequest()

	w := suite.doJSON(http.MethodPost, suite.entriesURL(), req)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.doJSON(http.MethodPost, suite.entriesURL(), req)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LedgerAPITestSuite) TestPostEntry_FullFlow() {
	suite.expectAccounts()
	suite.initializeAndOpenPeriods(3)

	createReq := suite.createEntryRequest()
	w := suite.doJSON(http.MethodPost, suite.entriesURL(), createReq)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.doJSON(http.MethodPost, suite.entriesURL()+"/"+createReq.EntryID+"/post", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp dto.EntryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("POSTED", resp.Status)
	suite.Equal(suite.userID, resp.PostedBy)

	notifications := suite.notifier.Notifications()
	suite.Require().Len(notifications, 1)
	suite.Equal(createReq.EntryID, notifications[0].EntryID)
}

func (suite *LedgerAPITestSuite) TestPostEntry_ClosedPeriodIs409() {
	suite.expectAccounts()
	suite.initializeAndOpenPeriods(3)

	// Close March before posting into it.
	w := suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/3/close", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	createReq := suite.createEntryRequest()
	w = suite.doJSON(http.MethodPost, suite.entriesURL(), createReq)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.doJSON(http.MethodPost, suite.entriesURL()+"/"+createReq.EntryID+"/post", nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.Contains(w.Body.String(), "closed")
}

func (suite *LedgerAPITestSuite) TestReverseEntry_Flow() {
	suite.expectAccounts()
	suite.initializeAndOpenPeriods(3)

	createReq := suite.createEntryRequest()
	createReq.AutoPost = true
	w := suite.doJSON(http.MethodPost, suite.entriesURL(), createReq)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.doJSON(http.MethodPost, suite.entriesURL()+"/"+createReq.EntryID+"/reverse", dto.ReverseEntryRequest{
		ReversalDate: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		Reason:       "booked twice",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var reversal dto.EntryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &reversal))
	suite.Equal("POSTED", reversal.Status)
	suite.True(reversal.IsReversing)
	suite.Equal(createReq.EntryID, reversal.ReversedFromEntryID)

	// A second reverse conflicts.
	w = suite.doJSON(http.MethodPost, suite.entriesURL()+"/"+createReq.EntryID+"/reverse", dto.ReverseEntryRequest{
		ReversalDate: time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC),
	})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *LedgerAPITestSuite) TestGetEntry_UnknownIs404() {
	w := suite.doJSON(http.MethodGet, suite.entriesURL()+"/"+uuid.NewString(), nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *LedgerAPITestSuite) TestListEntries_FilterByStatus() {
	suite.expectAccounts()

	w := suite.doJSON(http.MethodPost, suite.entriesURL(), suite.createEntryRequest())
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.doJSON(http.MethodGet, suite.entriesURL()+"?status=DRAFT", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.ListEntriesResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Entries, 1)

	w = suite.doJSON(http.MethodGet, suite.entriesURL()+"?status=POSTED", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	resp = dto.ListEntriesResponse{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Empty(resp.Entries)
}

func (suite *LedgerAPITestSuite) TestPeriodLifecycleEndpoints() {
	suite.initializeAndOpenPeriods(1)

	// Close, reopen, close, lock.
	w := suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/1/close", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/1/reopen", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/1/close", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/1/lock", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// Locked periods cannot reopen.
	w = suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/1/reopen", nil)
	suite.Equal(http.StatusConflict, w.Code)

	// Opening period 3 before period 2 is out of sequence.
	w = suite.doJSON(http.MethodPost, suite.periodsURL()+"/2025/3/open", nil)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.doJSON(http.MethodGet, suite.periodsURL()+"/2025", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var set dto.PeriodSetResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &set))
	suite.Equal(2025, set.FiscalYear)
	suite.Len(set.Periods, 12)
	suite.Equal("LOCKED", set.Periods[0].Status)
}

func (suite *LedgerAPITestSuite) TestCheckPostable() {
	suite.initializeAndOpenPeriods(1)

	w := suite.doJSON(http.MethodGet, suite.periodsURL()+"/postable?date=2025-01-15", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"postable":true`)

	w = suite.doJSON(http.MethodGet, suite.periodsURL()+"/postable?date=2025-02-15", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"postable":false`)

	w = suite.doJSON(http.MethodGet, suite.periodsURL()+"/postable", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

// keep the error mapper honest about unknown errors
func (suite *LedgerAPITestSuite) TestAccountDirectoryFailureIs500() {
	suite.mockAccounts.On("GetAccount", mock.Anything, suite.orgID, "1000").Return(nil, apperrors.ErrInternal)

	w := suite.doJSON(http.MethodPost, suite.entriesURL(), suite.createEntryRequest())

	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Contains(w.Body.String(), "Failed to create entry")
}

func TestLedgerAPITestSuite(t *testing.T) {
	suite.Run(t, new(LedgerAPITestSuite))
}
