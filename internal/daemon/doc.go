// Package daemon coordinates the long-running subtitler process.
//
// It wires configuration, the job history, the model cache and the HTTP
// server into a single lifecycle with flock-based locking to prevent multiple
// instances. On start it removes workspaces and settles jobs left behind by a
// crash, prunes old history, logs failing preflight checks and warms the
// configured models in the background.
//
// Keep orchestration here: request handling lives in server and the
// transcription pipeline in transcribe.
package daemon
