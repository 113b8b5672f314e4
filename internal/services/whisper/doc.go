// Package whisper wraps the openai-whisper command line.
//
// Service.Load prefetches the weights for a model size into the configured
// model directory and returns a Model handle. Model.Transcribe runs the CLI
// against a media file with JSON output and parses the timed segments. The
// runtime is launched through uvx so no Python environment has to be managed
// by hand; tests swap in a CommandRunner.
package whisper
