package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Apply and pipeline control (dashboard fragments + SSE)
	mux.HandleFunc("/jobs/", s.handleJobActionRoutes)

	// Generated artifacts (tailored resumes, cover letters)
	artifactsDir := s.app.Config.Resume.ArtifactsDir
	mux.Handle("/artifacts/", http.StripPrefix("/artifacts/",
		http.FileServer(http.Dir(artifactsDir))))

	// API routes - Jobs (dashboard browsing)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobAPIRoutes)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/config", s.app.APIHandler.ConfigHandler)
	mux.HandleFunc("/api/profile", s.app.APIHandler.ProfileHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobActionRoutes dispatches /jobs/{key}/<action> to the apply and
// pipeline handlers. Keys never contain slashes (see common.JobKey).
func (s *Server) handleJobActionRoutes(w http.ResponseWriter, r *http.Request) {
	jobKey, action, ok := splitJobPath(r.URL.Path, "/jobs/")
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch action {
	case "apply":
		s.app.ApplyHandler.StartApply(w, r, jobKey)
	case "apply/stream":
		s.app.ApplyHandler.Stream(w, r, jobKey)
	case "apply/confirm":
		s.app.ApplyHandler.Confirm(w, r, jobKey)
	case "apply/cancel":
		s.app.ApplyHandler.Cancel(w, r, jobKey)
	case "tailor-resume":
		s.app.PipelineHandler.TailorResume(w, r, jobKey)
	case "cover-letter":
		s.app.PipelineHandler.CoverLetter(w, r, jobKey)
	case "tailor-resume/stream", "cover-letter/stream":
		s.app.PipelineHandler.Stream(w, r, jobKey)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleJobAPIRoutes dispatches /api/jobs/{key} and its subpaths.
func (s *Server) handleJobAPIRoutes(w http.ResponseWriter, r *http.Request) {
	jobKey, sub, ok := splitJobPath(r.URL.Path, "/api/jobs/")
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch sub {
	case "":
		s.app.JobHandler.GetJob(w, r, jobKey)
	case "activity":
		s.app.JobHandler.Activity(w, r, jobKey)
	case "versions":
		s.app.JobHandler.Versions(w, r, jobKey)
	case "status":
		s.app.JobHandler.UpdateStatus(w, r, jobKey)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// splitJobPath extracts the job key and the remaining subpath from a route
// under the given prefix. Returns ok=false when the key segment is empty.
func splitJobPath(path, prefix string) (jobKey, sub string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}

	if idx := strings.Index(rest, "/"); idx >= 0 {
		jobKey = rest[:idx]
		sub = strings.Trim(rest[idx+1:], "/")
	} else {
		jobKey = rest
	}
	if jobKey == "" {
		return "", "", false
	}
	return jobKey, sub, true
}
