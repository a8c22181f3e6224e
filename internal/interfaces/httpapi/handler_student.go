package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/harivignesh/cp-tracker/internal/domain/student"
	"github.com/harivignesh/cp-tracker/internal/usecase"
)

type studentHandlesRequest struct {
	LeetCode   string `json:"leetcode" validate:"omitempty,max=100"`
	Codeforces string `json:"codeforces" validate:"omitempty,max=100"`
	CodeChef   string `json:"codechef" validate:"omitempty,max=100"`
	HackerRank string `json:"hackerrank" validate:"omitempty,max=100"`
}

func (r studentHandlesRequest) toDomain() student.Handles {
	return student.Handles{
		LeetCode:   strings.TrimSpace(r.LeetCode),
		Codeforces: strings.TrimSpace(r.Codeforces),
		CodeChef:   strings.TrimSpace(r.CodeChef),
		HackerRank: strings.TrimSpace(r.HackerRank),
	}
}

type createStudentRequest struct {
	RegNo      string                `json:"reg_no" validate:"required,max=30"`
	Name       string                `json:"name" validate:"required,max=120"`
	Department string                `json:"department" validate:"required,max=60"`
	Year       int                   `json:"year" validate:"required,min=1,max=5"`
	Handles    studentHandlesRequest `json:"handles"`
}

type updateStudentRequest struct {
	Name       string                `json:"name" validate:"required,max=120"`
	Department string                `json:"department" validate:"required,max=60"`
	Year       int                   `json:"year" validate:"required,min=1,max=5"`
	Handles    studentHandlesRequest `json:"handles"`
}

func cohortFilterFromQuery(r *http.Request) student.Filter {
	filter := student.Filter{
		Department: strings.TrimSpace(r.URL.Query().Get("department")),
	}
	if rawYear := strings.TrimSpace(r.URL.Query().Get("year")); rawYear != "" {
		if year, err := strconv.Atoi(rawYear); err == nil {
			filter.Year = year
		}
	}
	return filter
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListStudents")
	defer span.End()

	items, err := h.studentService.List(ctx, cohortFilterFromQuery(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "list students failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]studentDTO, 0, len(items))
	for _, item := range items {
		out = append(out, studentToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStudent")
	defer span.End()

	studentID := strings.TrimSpace(r.PathValue("studentID"))
	item, err := h.studentService.Get(ctx, studentID)
	if err != nil {
		h.logger.WarnContext(ctx, "get student failed", "student_id", studentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, studentToDTO(ctx, item))
}

func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateStudent")
	defer span.End()

	var req createStudentRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.studentService.Create(ctx, usecase.CreateStudentInput{
		RegNo:      strings.TrimSpace(req.RegNo),
		Name:       strings.TrimSpace(req.Name),
		Department: strings.TrimSpace(req.Department),
		Year:       req.Year,
		Handles:    req.Handles.toDomain(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create student failed", "reg_no", req.RegNo, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, studentToDTO(ctx, item))
}

func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateStudent")
	defer span.End()

	studentID := strings.TrimSpace(r.PathValue("studentID"))

	var req updateStudentRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.studentService.Update(ctx, studentID, usecase.UpdateStudentInput{
		Name:       strings.TrimSpace(req.Name),
		Department: strings.TrimSpace(req.Department),
		Year:       req.Year,
		Handles:    req.Handles.toDomain(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update student failed", "student_id", studentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, studentToDTO(ctx, item))
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteStudent")
	defer span.End()

	studentID := strings.TrimSpace(r.PathValue("studentID"))
	if err := h.studentService.Delete(ctx, studentID); err != nil {
		h.logger.WarnContext(ctx, "delete student failed", "student_id", studentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"id": studentID, "status": "deleted"})
}

func (h *Handler) RefreshStudent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshStudent")
	defer span.End()

	studentID := strings.TrimSpace(r.PathValue("studentID"))
	item, err := h.refreshService.RefreshStudent(ctx, studentID)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh student failed", "student_id", studentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, studentToDTO(ctx, item))
}

func (h *Handler) RefreshCohort(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshCohort")
	defer span.End()

	result, err := h.refreshService.RefreshAll(ctx, cohortFilterFromQuery(r))
	if err != nil {
		h.logger.ErrorContext(ctx, "cohort refresh failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ListStudentPerformances(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListStudentPerformances")
	defer span.End()

	studentID := strings.TrimSpace(r.PathValue("studentID"))
	rows, err := h.refreshService.ListPerformances(ctx, studentID)
	if err != nil {
		h.logger.WarnContext(ctx, "list performances failed", "student_id", studentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]performanceDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, performanceToDTO(ctx, row))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}
