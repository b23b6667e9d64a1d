package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cardwatch/cardwatch/pkg/apperrors"
)

// CycleRunner triggers an immediate scheduler cycle, bypassing tier gating.
type CycleRunner interface {
	RunNow(ctx context.Context) error
}

// AdminHandler exposes operator-only endpoints for forcing scheduler
// actions outside the normal cron cadence.
type AdminHandler struct {
	scheduler CycleRunner
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(s CycleRunner) *AdminHandler {
	return &AdminHandler{scheduler: s}
}

// RunCycle triggers an immediate cycle across every enabled shop and blocks
// until it completes. Intended for operators, not routine automation — the
// scheduler lock still prevents it from racing a tick-driven cycle.
func (h *AdminHandler) RunCycle(c echo.Context) error {
	if err := h.scheduler.RunNow(c.Request().Context()); err != nil {
		return c.JSON(statusForError(err), ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "completed"})
}

// statusForError maps a scheduler error to an HTTP status code. Errors not
// carrying an apperrors.AppError type fall back to 500, matching prior
// behavior.
func statusForError(err error) int {
	switch apperrors.GetType(err) {
	case apperrors.ErrUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrInvalidInput:
		return http.StatusBadRequest
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RegisterAdminRoutes registers operator-only endpoints on the Echo instance.
func RegisterAdminRoutes(e *echo.Echo, h *AdminHandler) {
	e.POST("/admin/cycle/run", h.RunCycle)
}
