package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/students", handler.ListStudents)
	mux.HandleFunc("GET /api/students/{studentID}", handler.GetStudent)
	mux.HandleFunc("GET /api/students/{studentID}/performances", handler.ListStudentPerformances)
	mux.HandleFunc("GET /api/contests/upcoming", handler.ListUpcomingContests)
	mux.HandleFunc("GET /api/dashboard", handler.GetDashboard)
	mux.HandleFunc("GET /api/leaderboard", handler.GetLeaderboard)
	mux.HandleFunc("GET /api/export/cohort", handler.ExportCohort)
	mux.HandleFunc("GET /api/export/contest", handler.ExportContest)
	mux.HandleFunc("GET /api/reports/{department}/{reportType}/download", handler.DownloadReport)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /api/students", RequireAuth(verifier, http.HandlerFunc(handler.CreateStudent)))
	mux.Handle("PUT /api/students/{studentID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateStudent)))
	mux.Handle("DELETE /api/students/{studentID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteStudent)))
	mux.Handle("POST /api/students/{studentID}/refresh", RequireAuth(verifier, http.HandlerFunc(handler.RefreshStudent)))
	mux.Handle("POST /api/refresh", RequireAuth(verifier, http.HandlerFunc(handler.RefreshCohort)))
	mux.Handle("POST /api/reports/{department}/{reportType}/update", RequireAuth(verifier, http.HandlerFunc(handler.UpdateReport)))
}
