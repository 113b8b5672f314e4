package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subtitler/internal/captions"
	"subtitler/internal/history"
	"subtitler/internal/logging"
	"subtitler/internal/models"
	"subtitler/internal/services"
	"subtitler/internal/services/whisper"
)

// Model is a loaded speech-recognition model.
type Model interface {
	Transcribe(ctx context.Context, source string, opts whisper.Options) (whisper.Result, error)
}

// Recorder persists job progress. *history.Store satisfies it.
type Recorder interface {
	Begin(ctx context.Context, job history.Job) (*history.Job, error)
	Complete(ctx context.Context, id string, outcome history.Outcome) error
	Fail(ctx context.Context, id, message string) error
}

// Job is one file to subtitle.
type Job struct {
	ID       string
	Filename string
	Source   string
	// WorkDir receives the runtime's intermediate output.
	WorkDir string
	Params  Params
}

// Document is a rendered subtitle file.
type Document struct {
	JobID    string
	Filename string
	Content  string
	Format   captions.Format
	Language string
	Segments []captions.Segment
	Adjusted int
}

// Service turns media files into subtitle documents.
type Service struct {
	cache    *models.Cache[Model]
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// NewService wires a transcription service. recorder may be nil; a zero
// timeout leaves transcription unbounded.
func NewService(cache *models.Cache[Model], recorder Recorder, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		cache:    cache,
		recorder: recorder,
		logger:   logging.NewComponentLogger(logger, "transcribe"),
		timeout:  timeout,
	}
}

// Cache exposes the model cache for status reporting.
func (s *Service) Cache() *models.Cache[Model] {
	return s.cache
}

// Generate transcribes job.Source and renders the segments. Runtime failures
// are returned as *services.TranscriptionError.
func (s *Service) Generate(ctx context.Context, job Job) (*Document, error) {
	if strings.TrimSpace(job.Source) == "" {
		return nil, fmt.Errorf("%w: source file required", services.ErrValidation)
	}
	if job.Params.Format == "" || job.Params.MaxChars == 0 {
		return nil, fmt.Errorf("%w: unparsed parameters", services.ErrValidation)
	}
	logger := logging.WithContext(ctx, s.logger).With(
		logging.String("file", job.Filename),
		logging.String(models.FieldModelSize, string(job.Params.ModelSize)),
	)

	jobID := s.begin(ctx, job, logger)
	started := time.Now()
	doc, err := s.generate(ctx, job)
	if err != nil {
		s.fail(ctx, jobID, err, logger)
		return nil, err
	}
	doc.JobID = jobID
	if doc.Adjusted > 0 {
		logging.WarnWithContext(logger, "segment timings adjusted", "segments_adjusted",
			logging.Int("adjusted", doc.Adjusted),
			logging.Int("segments", len(doc.Segments)),
			logging.String(logging.FieldErrorHint, "runtime returned negative or inverted timings"),
			logging.String(logging.FieldImpact, "affected cues were clamped"),
		)
	}
	s.complete(ctx, jobID, doc, logger)
	logger.Info("subtitles generated",
		logging.String("format", string(doc.Format)),
		logging.Int("segments", len(doc.Segments)),
		logging.String("language", doc.Language),
		logging.Duration("elapsed", time.Since(started)),
	)
	return doc, nil
}

func (s *Service) generate(ctx context.Context, job Job) (*Document, error) {
	model, err := s.cache.Get(ctx, job.Params.ModelSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &services.TranscriptionError{Size: string(job.Params.ModelSize), Err: err}
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	result, err := model.Transcribe(runCtx, job.Source, whisper.Options{
		Task:      job.Params.Task,
		Language:  job.Params.Language,
		OutputDir: job.WorkDir,
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("transcription timed out after %s", s.timeout)
		}
		return nil, &services.TranscriptionError{Size: string(job.Params.ModelSize), Err: err}
	}

	segments, adjusted := captions.Sanitize(convertSegments(result.Segments))
	content, err := captions.Build(segments, job.Params.Format, job.Params.MaxChars)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "render", "", err)
	}
	return &Document{
		Filename: OutputName(job.Filename, job.Params.Format),
		Content:  content,
		Format:   job.Params.Format,
		Language: result.Language,
		Segments: segments,
		Adjusted: adjusted,
	}, nil
}

func (s *Service) begin(ctx context.Context, job Job, logger *slog.Logger) string {
	if s.recorder == nil {
		return job.ID
	}
	rec, err := s.recorder.Begin(ctx, history.Job{
		ID:        job.ID,
		Filename:  job.Filename,
		ModelSize: string(job.Params.ModelSize),
		Task:      job.Params.Task,
		Language:  job.Params.Language,
		Format:    string(job.Params.Format),
		MaxChars:  job.Params.MaxChars,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record job start", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions"),
			logging.String(logging.FieldImpact, "job missing from history"),
		)
		return job.ID
	}
	return rec.ID
}

func (s *Service) complete(ctx context.Context, id string, doc *Document, logger *slog.Logger) {
	if s.recorder == nil || id == "" {
		return
	}
	outcome := history.Outcome{Segments: len(doc.Segments), Adjusted: doc.Adjusted, DetectedLanguage: doc.Language}
	if err := s.recorder.Complete(context.WithoutCancel(ctx), id, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record job completion", "history_write_failed", logging.Error(err))
	}
}

func (s *Service) fail(ctx context.Context, id string, cause error, logger *slog.Logger) {
	logging.ErrorWithContext(logger, "subtitle generation failed", "transcription_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "see the whisper runtime output in the error"),
	)
	if s.recorder == nil || id == "" {
		return
	}
	if err := s.recorder.Fail(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		logging.WarnWithContext(logger, "failed to record job failure", "history_write_failed", logging.Error(err))
	}
}

func convertSegments(in []whisper.Segment) []captions.Segment {
	out := make([]captions.Segment, len(in))
	for i, seg := range in {
		out[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	return out
}

// OutputName derives the download name: the upload's base name with its
// extension replaced by the format's.
func OutputName(upload string, format captions.Format) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(upload), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "subtitles"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return stem + format.Extension()
}

// Save writes the document into dir and returns its path.
func (d *Document) Save(dir string) (string, error) {
	path := filepath.Join(dir, d.Filename)
	if err := os.WriteFile(path, []byte(d.Content), 0o600); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return path, nil
}

// WhisperLoader adapts a whisper service to the model cache.
func WhisperLoader(svc *whisper.Service) models.LoadFunc[Model] {
	return func(ctx context.Context, size models.Size) (Model, error) {
		model, err := svc.Load(ctx, string(size))
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}
