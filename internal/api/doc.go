// Package api defines wire-format types, converters and a client for the
// daemon's HTTP API. It translates history jobs, model cache state and
// dependency checks into transport-friendly DTOs so the CLI can render them
// without touching internal packages.
//
// # Key Types
//
// DaemonStatus: running state, PID, resident models, job counts, in-flight
// workspaces and dependency checks.
//
// Job: transport representation of a history entry.
//
// ModelInfo: catalog entry for a model size plus whether it is resident.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Errors are returned as {"error": "..."} bodies and surface from Client as
// *StatusError.
package api
