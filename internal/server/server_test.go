package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"subtitler/internal/api"
	"subtitler/internal/history"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/services/whisper"
	"subtitler/internal/transcribe"
)

type stubModel struct {
	segments []whisper.Segment
	err      error
	sawFile  atomic.Bool
}

func (m *stubModel) Transcribe(_ context.Context, source string, _ whisper.Options) (whisper.Result, error) {
	if data, err := os.ReadFile(source); err == nil && len(data) > 0 {
		m.sawFile.Store(true)
	}
	if m.err != nil {
		return whisper.Result{}, m.err
	}
	return whisper.Result{Language: "en", Segments: m.segments}, nil
}

type testEnv struct {
	handler http.Handler
	workDir string
	store   *history.Store
	loads   *atomic.Int32
}

func newTestEnv(t *testing.T, model *stubModel, token string) testEnv {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	loads := &atomic.Int32{}
	cache := models.NewCache(func(context.Context, models.Size) (transcribe.Model, error) {
		loads.Add(1)
		return model, nil
	}, logging.NewNop())
	svc := transcribe.NewService(cache, store, 0, logging.NewNop())
	workDir := t.TempDir()
	srv := New(Options{Token: token, WorkDir: workDir, MaxUploadBytes: 1 << 20}, svc, store, nil, logging.NewNop())
	return testEnv{handler: srv.Handler(), workDir: workDir, store: store, loads: loads}
}

func uploadRequest(t *testing.T, query, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/subtitles"+query, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return payload.Error
}

func assertWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected workspaces removed, found %d entries", len(entries))
	}
}

func TestSubtitlesSRT(t *testing.T) {
	model := &stubModel{segments: []whisper.Segment{
		{Start: 0, End: 1.2, Text: " Hello world"},
		{Start: 1.2, End: 2.5, Text: " Second line"},
	}}
	env := newTestEnv(t, model, "")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, uploadRequest(t, "", "lecture.mp4", []byte("media")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := "1\n00:00:00,000 --> 00:00:01,200\nHello world\n\n2\n00:00:01,200 --> 00:00:02,500\nSecond line\n"
	if w.Body.String() != want {
		t.Fatalf("unexpected body:\n%q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=lecture.srt" {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !model.sawFile.Load() {
		t.Fatal("expected model to read the staged upload")
	}
	assertWorkDirEmpty(t, env.workDir)

	jobID := w.Header().Get("X-Job-ID")
	job, err := env.store.Get(context.Background(), jobID)
	if err != nil {
		t.Fatalf("expected history entry for %q: %v", jobID, err)
	}
	if job.Status != history.StatusSucceeded || job.Filename != "lecture.mp4" || job.Segments != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestSubtitlesVTTAndCacheReuse(t *testing.T) {
	model := &stubModel{segments: []whisper.Segment{{Start: 61.5, End: 63, Text: "Bonjour"}}}
	env := newTestEnv(t, model, "")

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, uploadRequest(t, "?response_format=vtt&model_size=tiny&task=translate&max_chars=30", "clip.webm", []byte("x")))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if w.Body.String() != "WEBVTT\n\n00:01:01.500 --> 00:01:03.000\nBonjour\n" {
			t.Fatalf("unexpected body %q", w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vtt") {
			t.Fatalf("unexpected content type %q", ct)
		}
		if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename=clip.vtt" {
			t.Fatalf("unexpected disposition %q", cd)
		}
	}
	if env.loads.Load() != 1 {
		t.Fatalf("expected one model load, got %d", env.loads.Load())
	}
}

func TestSubtitlesValidation(t *testing.T) {
	env := newTestEnv(t, &stubModel{}, "")
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"model", "?model_size=huge", "model_size"},
		{"task", "?task=dance", "task"},
		{"chars", "?max_chars=10", "max_chars"},
		{"format", "?response_format=ass", "response_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.handler.ServeHTTP(w, uploadRequest(t, tt.query, "a.wav", []byte("x")))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if msg := decodeError(t, w); !strings.Contains(msg, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, msg)
			}
		})
	}
	if env.loads.Load() != 0 {
		t.Fatal("validation failures must not load models")
	}
}

func TestSubtitlesFileMissing(t *testing.T) {
	env := newTestEnv(t, &stubModel{}, "")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, uploadRequest(t, "", "", []byte("x")))
	if w.Code != http.StatusBadRequest || decodeError(t, w) != "File missing" {
		t.Fatalf("expected 400 File missing, got %d %s", w.Code, w.Body.String())
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/subtitles", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file part, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/subtitles", strings.NewReader("raw"))
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", w.Code)
	}
	assertWorkDirEmpty(t, env.workDir)
}

func TestSubtitlesWhisperError(t *testing.T) {
	env := newTestEnv(t, &stubModel{err: errors.New("ffmpeg: invalid data found")}, "")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, uploadRequest(t, "", "broken.mp3", []byte("x")))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := decodeError(t, w); msg != "Whisper error: ffmpeg: invalid data found" {
		t.Fatalf("unexpected message %q", msg)
	}
	assertWorkDirEmpty(t, env.workDir)

	jobs, err := env.store.List(context.Background(), 0)
	if err != nil || len(jobs) != 1 || jobs[0].Status != history.StatusFailed {
		t.Fatalf("expected one failed job, got %+v (%v)", jobs, err)
	}
}

func TestSubtitlesUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, &stubModel{}, "")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, uploadRequest(t, "", "big.wav", bytes.Repeat([]byte("a"), 2<<20)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	assertWorkDirEmpty(t, env.workDir)
}

func TestSubtitlesMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, &stubModel{}, "")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/subtitles", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, &stubModel{}, "secret")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected healthz without auth, got %d", w.Code)
	}
}

func TestStatusModelsAndJobs(t *testing.T) {
	model := &stubModel{segments: []whisper.Segment{{Start: 0, End: 1, Text: "hi"}}}
	env := newTestEnv(t, model, "")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, uploadRequest(t, "?model_size=base", "a.wav", []byte("x")))
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}
	jobID := w.Header().Get("X-Job-ID")

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || len(status.LoadedModels) != 1 || status.LoadedModels[0] != "base" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Jobs == nil || status.Jobs.Succeeded != 1 {
		t.Fatalf("unexpected job stats: %+v", status.Jobs)
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	var modelsResp api.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &modelsResp); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(modelsResp.Models) != 5 {
		t.Fatalf("expected catalog of 5, got %d", len(modelsResp.Models))
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=10", nil))
	var list api.JobListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != jobID {
		t.Fatalf("unexpected jobs: %+v", list.Jobs)
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected job lookup to succeed, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestStartStop(t *testing.T) {
	cache := models.NewCache(func(context.Context, models.Size) (transcribe.Model, error) { return &stubModel{}, nil }, nil)
	srv := New(Options{Bind: "127.0.0.1:0", WorkDir: t.TempDir()}, transcribe.NewService(cache, nil, 0, nil), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	srv.Stop()
}
