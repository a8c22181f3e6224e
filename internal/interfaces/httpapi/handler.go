package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

type Handler struct {
	studentService   *usecase.StudentService
	refreshService   *usecase.RefreshService
	reportService    *usecase.ReportService
	reconcileService *usecase.ReconcileService
	contestService   *usecase.ContestService
	dashboardService *usecase.DashboardService
	renderer         usecase.SheetRenderer
	logger           *slog.Logger
	validator        *validator.Validate
}

func NewHandler(
	studentService *usecase.StudentService,
	refreshService *usecase.RefreshService,
	reportService *usecase.ReportService,
	reconcileService *usecase.ReconcileService,
	contestService *usecase.ContestService,
	dashboardService *usecase.DashboardService,
	renderer usecase.SheetRenderer,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		studentService:   studentService,
		refreshService:   refreshService,
		reportService:    reportService,
		reconcileService: reconcileService,
		contestService:   contestService,
		dashboardService: dashboardService,
		renderer:         renderer,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
