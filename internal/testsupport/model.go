package testsupport

import (
	"context"
	"sync/atomic"

	"subtitler/internal/models"
	"subtitler/internal/services/whisper"
	"subtitler/internal/transcribe"
)

// StaticModel returns the same result for every transcription.
type StaticModel struct {
	Result whisper.Result
	Err    error
}

// Transcribe implements transcribe.Model.
func (m StaticModel) Transcribe(context.Context, string, whisper.Options) (whisper.Result, error) {
	return m.Result, m.Err
}

// Loader returns a model loader that hands out model and counts invocations
// in loads when it is non-nil.
func Loader(model transcribe.Model, loads *atomic.Int32) models.LoadFunc[transcribe.Model] {
	return func(context.Context, models.Size) (transcribe.Model, error) {
		if loads != nil {
			loads.Add(1)
		}
		return model, nil
	}
}

// SampleResult is a short two-segment English transcript.
func SampleResult() whisper.Result {
	return whisper.Result{
		Language: "en",
		Segments: []whisper.Segment{
			{ID: 0, Start: 0, End: 1.5, Text: " Hello there"},
			{ID: 1, Start: 1.5, End: 3.25, Text: " General Kenobi"},
		},
	}
}
