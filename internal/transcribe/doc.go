// Package transcribe runs one media file through the whisper runtime and
// renders the result as SRT or WebVTT.
//
// ParseOptions validates client parameters before any expensive work.
// Service.Generate fetches the model from the shared cache, transcribes,
// clamps inconsistent segment timings, renders the document and records the
// job in history when a Recorder is configured.
package transcribe
