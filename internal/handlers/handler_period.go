package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/dto"
	"github.com/opsledger/backoffice_ledger/internal/middleware"
)

// periodHandler handles HTTP requests for the accounting period lifecycle.
type periodHandler struct {
	periodSvc portssvc.PeriodSvcFacade
}

// newPeriodHandler creates a new periodHandler.
func newPeriodHandler(periodSvc portssvc.PeriodSvcFacade) *periodHandler {
	return &periodHandler{periodSvc: periodSvc}
}

// initializePeriods godoc
// @Summary Initialize a fiscal year's periods
// @Description Generates the accounting periods of a fiscal year; runs once per organization+year
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   request body dto.InitializePeriodsRequest true "Fiscal year parameters"
// @Success 201 {object} dto.PeriodSetResponse "The generated periods"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 409 {object} map[string]string "Fiscal year already initialized"
// @Failure 500 {object} map[string]string "Failed to initialize periods"
// @Router /organizations/{organizationID}/periods [post]
func (h *periodHandler) initializePeriods(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")

	var req dto.InitializePeriodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for initializePeriods", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	set, err := h.periodSvc.InitializePeriods(c.Request.Context(), organizationID, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to initialize periods")
		return
	}
	c.JSON(http.StatusCreated, dto.ToPeriodSetResponse(set))
}

// getPeriodSet godoc
// @Summary Get a fiscal year's periods
// @Description Retrieves the full period container of a fiscal year
// @Tags periods
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Success 200 {object} dto.PeriodSetResponse "The period container"
// @Failure 404 {object} map[string]string "Fiscal year not initialized"
// @Failure 500 {object} map[string]string "Failed to retrieve periods"
// @Router /organizations/{organizationID}/periods/{fiscalYear} [get]
func (h *periodHandler) getPeriodSet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	fiscalYear, ok := parseFiscalYear(c)
	if !ok {
		return
	}

	set, err := h.periodSvc.GetPeriodSet(c.Request.Context(), organizationID, fiscalYear)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve periods")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodSetResponse(set))
}

// getPeriod godoc
// @Summary Get one accounting period
// @Description Retrieves a single period of a fiscal year by number
// @Tags periods
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   periodNumber path int true "Period number"
// @Success 200 {object} dto.PeriodResponse "The period"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 500 {object} map[string]string "Failed to retrieve period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/{periodNumber} [get]
func (h *periodHandler) getPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	fiscalYear, ok := parseFiscalYear(c)
	if !ok {
		return
	}
	periodNumber, ok := parsePeriodNumber(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.GetPeriod(c.Request.Context(), organizationID, fiscalYear, periodNumber)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve period")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

// getCurrentOpenPeriod godoc
// @Summary Get the current open period
// @Description Returns the lowest-numbered Open period of the fiscal year
// @Tags periods
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Success 200 {object} dto.PeriodResponse "The current open period"
// @Failure 404 {object} map[string]string "No open period"
// @Failure 500 {object} map[string]string "Failed to retrieve period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/current [get]
func (h *periodHandler) getCurrentOpenPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	fiscalYear, ok := parseFiscalYear(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.GetCurrentOpenPeriod(c.Request.Context(), organizationID, fiscalYear)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to retrieve current open period")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

// checkPostable godoc
// @Summary Check whether a date is postable
// @Description Reports whether a posting dated at the given date is currently permitted
// @Tags periods
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   date query string true "Date (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} map[string]bool "Postability verdict"
// @Failure 400 {object} map[string]string "Invalid date"
// @Failure 500 {object} map[string]string "Failed to check date"
// @Router /organizations/{organizationID}/periods/postable [get]
func (h *periodHandler) checkPostable(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")

	date, ok := parseDateQuery(c)
	if !ok {
		return
	}

	postable, err := h.periodSvc.CanPostToDate(c.Request.Context(), organizationID, date)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to check date")
		return
	}
	c.JSON(http.StatusOK, gin.H{"postable": postable})
}

// openPeriod godoc
// @Summary Open an accounting period
// @Description Opens a period; earlier periods must already be open, closed, or locked
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   periodNumber path int true "Period number"
// @Param   request body dto.OpenPeriodRequest false "Notes"
// @Success 200 {object} dto.PeriodSetResponse "The updated container"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 409 {object} map[string]string "Opening out of sequence or period not openable"
// @Failure 500 {object} map[string]string "Failed to open period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/{periodNumber}/open [post]
func (h *periodHandler) openPeriod(c *gin.Context) {
	h.periodCommand(c, "Failed to open period", func(c *gin.Context, organizationID string, fiscalYear, periodNumber int, userID string) (any, error) {
		var req dto.OpenPeriodRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		set, err := h.periodSvc.OpenPeriod(c.Request.Context(), organizationID, fiscalYear, periodNumber, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToPeriodSetResponse(set), nil
	})
}

// closePeriod godoc
// @Summary Close an accounting period
// @Description Closes an open period; force closes one that was never opened
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   periodNumber path int true "Period number"
// @Param   request body dto.ClosePeriodRequest false "Notes and force flag"
// @Success 200 {object} dto.PeriodSetResponse "The updated container"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 409 {object} map[string]string "Period not closable"
// @Failure 500 {object} map[string]string "Failed to close period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/{periodNumber}/close [post]
func (h *periodHandler) closePeriod(c *gin.Context) {
	h.periodCommand(c, "Failed to close period", func(c *gin.Context, organizationID string, fiscalYear, periodNumber int, userID string) (any, error) {
		var req dto.ClosePeriodRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		set, err := h.periodSvc.ClosePeriod(c.Request.Context(), organizationID, fiscalYear, periodNumber, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToPeriodSetResponse(set), nil
	})
}

// reopenPeriod godoc
// @Summary Reopen a closed period
// @Description Reopens a closed period unless a later period is locked
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   periodNumber path int true "Period number"
// @Param   request body dto.ReopenPeriodRequest false "Notes"
// @Success 200 {object} dto.PeriodSetResponse "The updated container"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 409 {object} map[string]string "Period not reopenable"
// @Failure 500 {object} map[string]string "Failed to reopen period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/{periodNumber}/reopen [post]
func (h *periodHandler) reopenPeriod(c *gin.Context) {
	h.periodCommand(c, "Failed to reopen period", func(c *gin.Context, organizationID string, fiscalYear, periodNumber int, userID string) (any, error) {
		var req dto.ReopenPeriodRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		set, err := h.periodSvc.ReopenPeriod(c.Request.Context(), organizationID, fiscalYear, periodNumber, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToPeriodSetResponse(set), nil
	})
}

// lockPeriod godoc
// @Summary Lock a closed period
// @Description Permanently locks a closed period once every earlier one is closed or locked
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   periodNumber path int true "Period number"
// @Param   request body dto.LockPeriodRequest false "Notes"
// @Success 200 {object} dto.PeriodSetResponse "The updated container"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 409 {object} map[string]string "Period not lockable"
// @Failure 500 {object} map[string]string "Failed to lock period"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/{periodNumber}/lock [post]
func (h *periodHandler) lockPeriod(c *gin.Context) {
	h.periodCommand(c, "Failed to lock period", func(c *gin.Context, organizationID string, fiscalYear, periodNumber int, userID string) (any, error) {
		var req dto.LockPeriodRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			return nil, err
		}
		set, err := h.periodSvc.LockPeriod(c.Request.Context(), organizationID, fiscalYear, periodNumber, req, userID)
		if err != nil {
			return nil, err
		}
		return dto.ToPeriodSetResponse(set), nil
	})
}

// yearEndClose godoc
// @Summary Close the fiscal year
// @Description Locks every period of the fiscal year and marks it closed
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   organizationID path string true "Organization ID"
// @Param   fiscalYear path int true "Fiscal year"
// @Param   request body dto.YearEndCloseRequest true "Retained earnings account and notes"
// @Success 200 {object} dto.PeriodSetResponse "The closed fiscal year"
// @Failure 400 {object} map[string]string "Missing retained earnings account"
// @Failure 409 {object} map[string]string "Year already closed or periods still open"
// @Failure 500 {object} map[string]string "Failed to close fiscal year"
// @Router /organizations/{organizationID}/periods/{fiscalYear}/year-end-close [post]
func (h *periodHandler) yearEndClose(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	fiscalYear, ok := parseFiscalYear(c)
	if !ok {
		return
	}

	var req dto.YearEndCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for yearEndClose", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	set, err := h.periodSvc.YearEndClose(c.Request.Context(), organizationID, fiscalYear, req, userID)
	if err != nil {
		respondServiceError(c, logger, err, "Failed to close fiscal year")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodSetResponse(set))
}

// periodCommand factors the shared shape of the per-period lifecycle endpoints.
func (h *periodHandler) periodCommand(c *gin.Context, fallbackMsg string, run func(c *gin.Context, organizationID string, fiscalYear, periodNumber int, userID string) (any, error)) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	organizationID := c.Param("organizationID")
	fiscalYear, ok := parseFiscalYear(c)
	if !ok {
		return
	}
	periodNumber, ok := parsePeriodNumber(c)
	if !ok {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := run(c, organizationID, fiscalYear, periodNumber, userID)
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

func parseFiscalYear(c *gin.Context) (int, bool) {
	fiscalYear, err := strconv.Atoi(c.Param("fiscalYear"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fiscal year"})
		return 0, false
	}
	return fiscalYear, true
}

func parsePeriodNumber(c *gin.Context) (int, bool) {
	periodNumber, err := strconv.Atoi(c.Param("periodNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period number"})
		return 0, false
	}
	return periodNumber, true
}

func parseDateQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return time.Time{}, false
	}
	if date, err := time.Parse(time.RFC3339, raw); err == nil {
		return date, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use RFC 3339 or YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

// registerPeriodRoutes registers period specific routes.
func registerPeriodRoutes(group *gin.RouterGroup, periodSvc portssvc.PeriodSvcFacade) {
	h := newPeriodHandler(periodSvc)

	periods := group.Group("/periods")
	{
		periods.POST("", h.initializePeriods)
		periods.GET("/postable", h.checkPostable)
		periods.GET("/:fiscalYear", h.getPeriodSet)
		periods.GET("/:fiscalYear/current", h.getCurrentOpenPeriod)
		periods.GET("/:fiscalYear/:periodNumber", h.getPeriod)
		periods.POST("/:fiscalYear/:periodNumber/open", h.openPeriod)
		periods.POST("/:fiscalYear/:periodNumber/close", h.closePeriod)
		periods.POST("/:fiscalYear/:periodNumber/reopen", h.reopenPeriod)
		periods.POST("/:fiscalYear/:periodNumber/lock", h.lockPeriod)
		periods.POST("/:fiscalYear/year-end-close", h.yearEndClose)
	}
}
