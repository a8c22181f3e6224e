package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/harivignesh/cp-tracker/internal/domain/report"
	"github.com/harivignesh/cp-tracker/internal/domain/stats"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

func reportKeyFromRequest(r *http.Request) (report.Key, error) {
	rawType := strings.TrimSpace(r.PathValue("reportType"))
	reportType, ok := report.ParseType(rawType)
	if !ok {
		return report.Key{}, fmt.Errorf("%w: unknown report type %q", usecase.ErrInvalidInput, rawType)
	}

	return report.Key{
		Department: strings.TrimSpace(r.PathValue("department")),
		Year:       strings.TrimSpace(r.URL.Query().Get("year")),
		Type:       reportType,
	}.Normalize(), nil
}

func cohortFilterFromKey(key report.Key) student.Filter {
	filter := student.Filter{}
	if !strings.EqualFold(key.Department, "All") {
		filter.Department = key.Department
	}
	if !strings.EqualFold(key.Year, "All") {
		if year, err := strconv.Atoi(key.Year); err == nil {
			filter.Year = year
		}
	}
	return filter
}

// UpdateReport builds fresh sheets for the keyed report and reconciles them
// into the persisted file. For contest reports the platform and contest query
// parameters select the snapshot.
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateReport")
	defer span.End()

	key, err := reportKeyFromRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	filter := cohortFilterFromKey(key)

	var sheets []report.Sheet
	switch key.Type {
	case report.TypeContest:
		platform, ok := stats.ParsePlatform(r.URL.Query().Get("platform"))
		if !ok {
			writeError(ctx, w, fmt.Errorf("%w: unknown platform %q", usecase.ErrInvalidInput, r.URL.Query().Get("platform")))
			return
		}
		contestName := strings.TrimSpace(r.URL.Query().Get("contest"))
		if contestName == "" {
			writeError(ctx, w, fmt.Errorf("%w: contest query parameter is required", usecase.ErrInvalidInput))
			return
		}
		sheet, buildErr := h.reportService.BuildContestSheet(ctx, platform, contestName, filter)
		if buildErr != nil {
			h.logger.WarnContext(ctx, "build contest sheet failed", "platform", platform, "contest", contestName, "error", buildErr)
			writeError(ctx, w, buildErr)
			return
		}
		// Persisted contest sheets live under a deterministic slug so a
		// re-run of the same contest replaces the previous snapshot.
		sheet.Name = usecase.ContestSheetSlug(platform, contestName)
		sheets = []report.Sheet{sheet}
	default:
		var buildErr error
		sheets, buildErr = h.reportService.BuildCohortSheets(ctx, filter)
		if buildErr != nil {
			h.logger.WarnContext(ctx, "build cohort sheets failed", "department", key.Department, "error", buildErr)
			writeError(ctx, w, buildErr)
			return
		}
	}

	names, err := h.reconcileService.MergeAndPersist(ctx, key, sheets)
	if err != nil {
		h.logger.WarnContext(ctx, "report reconcile failed",
			"department", key.Department, "year", key.Year, "type", key.Type, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"department": key.Department,
		"year":       key.Year,
		"type":       key.Type,
		"sheets":     names,
	})
}

// DownloadReport streams the persisted workbook. A never-built report is a
// 404 telling the caller to run an update first.
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DownloadReport")
	defer span.End()

	key, err := reportKeyFromRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	raw, err := h.reconcileService.OpenReport(ctx, key)
	if err != nil {
		h.logger.WarnContext(ctx, "report download failed",
			"department", key.Department, "year", key.Year, "type", key.Type, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeWorkbook(w, fmt.Sprintf("%s_%s_%s.xlsx", key.Type, key.Department, key.Year), raw)
}

// ExportCohort renders a cohort snapshot workbook on the fly, bypassing the
// persisted report store entirely.
func (h *Handler) ExportCohort(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExportCohort")
	defer span.End()

	filter := cohortFilterFromQuery(r)
	sheets, err := h.reportService.BuildCohortSheets(ctx, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "cohort export failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	raw, err := h.renderer.Render(sheets)
	if err != nil {
		h.logger.ErrorContext(ctx, "cohort export render failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeWorkbook(w, "cohort_snapshot.xlsx", raw)
}

// ExportContest renders a single-contest snapshot workbook on the fly.
func (h *Handler) ExportContest(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExportContest")
	defer span.End()

	platform, ok := stats.ParsePlatform(r.URL.Query().Get("platform"))
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown platform %q", usecase.ErrInvalidInput, r.URL.Query().Get("platform")))
		return
	}
	contestName := strings.TrimSpace(r.URL.Query().Get("contest"))
	if contestName == "" {
		writeError(ctx, w, fmt.Errorf("%w: contest query parameter is required", usecase.ErrInvalidInput))
		return
	}

	sheet, err := h.reportService.BuildContestSheet(ctx, platform, contestName, cohortFilterFromQuery(r))
	if err != nil {
		h.logger.WarnContext(ctx, "contest export failed", "platform", platform, "contest", contestName, "error", err)
		writeError(ctx, w, err)
		return
	}

	raw, err := h.renderer.Render([]report.Sheet{sheet})
	if err != nil {
		h.logger.ErrorContext(ctx, "contest export render failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeWorkbook(w, sheet.Name+".xlsx", raw)
}

func writeWorkbook(w http.ResponseWriter, filename string, raw []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
