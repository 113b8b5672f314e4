package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"subtitler/internal/api"
	"subtitler/internal/logging"
	"subtitler/internal/services"
	"subtitler/internal/staging"
	"subtitler/internal/transcribe"
)

const (
	uploadField      = "file"
	defaultJobsLimit = 50
	maxJobsLimit     = 1000
)

var errFileMissing = errors.New("File missing")

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.active.Add(1)
	defer s.active.Add(-1)

	requestID := uuid.NewString()
	ctx := services.WithRequestID(r.Context(), requestID)
	logger := logging.WithContext(ctx, s.logger)
	w.Header().Set("X-Request-ID", requestID)

	query := r.URL.Query()
	params, err := transcribe.ParseOptions(transcribe.RawOptions{
		ModelSize: query.Get("model_size"),
		Language:  query.Get("language"),
		Task:      query.Get("task"),
		MaxChars:  query.Get("max_chars"),
		Format:    query.Get("response_format"),
	}, s.opts.Defaults)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errFileMissing.Error())
		return
	}

	ws, err := staging.New(s.opts.WorkDir, requestID, s.logger)
	if err != nil {
		logging.ErrorWithContext(logger, "workspace creation failed", "workspace_create_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer ws.Close()

	filename, source, size, err := receiveUpload(reader, ws)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
		case errors.Is(err, errFileMissing):
			s.writeError(w, http.StatusBadRequest, errFileMissing.Error())
		default:
			logging.WarnWithContext(logger, "upload failed", "upload_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "client disconnected or work_dir is not writable"),
				logging.String(logging.FieldImpact, "request rejected"),
			)
			s.writeError(w, http.StatusBadRequest, "upload failed: "+err.Error())
		}
		return
	}
	logger.Info("upload received",
		logging.String("file", filename),
		logging.Int64("bytes", size),
		logging.String("model_size", string(params.ModelSize)),
		logging.String("task", params.Task),
		logging.String("format", string(params.Format)),
	)

	doc, err := s.transcriber.Generate(ctx, transcribe.Job{
		ID:       requestID,
		Filename: filename,
		Source:   source,
		WorkDir:  ws.Dir,
		Params:   params,
	})
	if err != nil {
		s.writeGenerateError(ctx, w, err)
		return
	}

	path, err := doc.Save(ws.Dir)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to stage subtitles", "subtitle_write_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to write subtitles")
		return
	}
	s.serveDocument(w, path, doc, logger)
}

// receiveUpload streams the first file part into the workspace, skipping any
// other form fields.
func receiveUpload(reader *multipart.Reader, ws *staging.Workspace) (string, string, int64, error) {
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", "", 0, errFileMissing
		}
		if err != nil {
			return "", "", 0, err
		}
		if part.FormName() != uploadField {
			_ = part.Close()
			continue
		}
		filename := strings.TrimSpace(part.FileName())
		if filename == "" {
			_ = part.Close()
			return "", "", 0, errFileMissing
		}
		path, size, err := ws.Store(filename, part)
		_ = part.Close()
		if err != nil {
			return "", "", 0, err
		}
		return filename, path, size, nil
	}
}

func (s *Server) writeGenerateError(ctx context.Context, w http.ResponseWriter, err error) {
	var te *services.TranscriptionError
	switch {
	case errors.As(err, &te):
		s.writeError(w, http.StatusInternalServerError, "Whisper error: "+te.Error())
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// client went away; nothing useful can be written
		return
	default:
		s.writeError(w, services.HTTPStatus(err), err.Error())
	}
}

func (s *Server) serveDocument(w http.ResponseWriter, path string, doc *transcribe.Document, logger *slog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read subtitles")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", doc.Format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	if doc.JobID != "" {
		w.Header().Set("X-Job-ID", doc.JobID)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		logger.Warn("failed to send subtitles", logging.Error(err))
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.jobs == nil {
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: []api.Job{}})
		return
	}
	limit := defaultJobsLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxJobsLimit)
	}
	jobs, err := s.jobs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" || strings.Contains(id, "/") || s.jobs == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
