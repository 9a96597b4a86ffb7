package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/strmforge/video-courier/internal/domain"
	"go.uber.org/zap"
)

// startRunRequest is the JSON body for POST /api/runs
type startRunRequest struct {
	URLs             []string `json:"urls"`
	Backend          string   `json:"backend"`
	DestFolder       string   `json:"dest_folder"`
	Quality          string   `json:"quality,omitempty"`
	Proxy            string   `json:"proxy,omitempty"`
	FilenameTemplate string   `json:"filename_template,omitempty"`
}

// runResponse is the JSON shape of one run
type runResponse struct {
	ID              string                  `json:"id"`
	State           string                  `json:"state"`
	Backend         string                  `json:"backend"`
	DestFolder      string                  `json:"dest_folder"`
	Progress        int                     `json:"progress"`
	Message         string                  `json:"message,omitempty"`
	WasCancelled    bool                    `json:"was_cancelled"`
	FailureReason   string                  `json:"failure_reason,omitempty"`
	DownloadResults []domain.DownloadResult `json:"download_results,omitempty"`
	UploadResults   []domain.UploadResult   `json:"upload_results,omitempty"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      *time.Time              `json:"finished_at,omitempty"`
}

func toRunResponse(run *domain.Run) runResponse {
	return runResponse{
		ID:              run.ID,
		State:           run.State,
		Backend:         run.Request.Backend,
		DestFolder:      run.Request.DestFolder,
		Progress:        run.Progress,
		Message:         run.Message,
		WasCancelled:    run.WasCancelled,
		FailureReason:   run.FailureReason,
		DownloadResults: run.DownloadResults,
		UploadResults:   run.UploadResults,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var body startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	run, err := s.manager.Start(r.Context(), domain.RunRequest{
		URLs:             body.URLs,
		Backend:          body.Backend,
		DestFolder:       body.DestFolder,
		Quality:          body.Quality,
		Proxy:            body.Proxy,
		FilenameTemplate: body.FilenameTemplate,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrPreflightFailed):
			writeError(w, http.StatusPreconditionFailed, err.Error())
		default:
			s.logger.Error("failed to start run", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start run")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, toRunResponse(run))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := s.manager.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.manager.Cancel(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
	case errors.Is(err, domain.ErrRunNotFound):
		writeError(w, http.StatusNotFound, "run not found")
	case errors.Is(err, domain.ErrRunNotActive):
		writeError(w, http.StatusConflict, "run is not active")
	default:
		s.logger.Error("failed to cancel run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel run")
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := s.manager.List(limit)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	responses := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, responses)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
