// Package services defines shared utilities consumed by the transcription
// pipeline, the HTTP server and the external runtime adapters.
//
// Key responsibilities:
//   - Context helpers that stamp request identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into validation (client) and transcription (runtime) errors.
//   - The mapping from those markers to HTTP status codes.
//
// Adapters for external tools live in subpackages (see services/whisper).
package services
