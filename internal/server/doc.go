// Package server exposes subtitle generation over HTTP.
//
// POST /subtitles accepts a multipart upload in the "file" field with query
// parameters model_size, language, task, max_chars and response_format, and
// answers with the rendered SRT or WebVTT document as an attachment. Each
// request stages its upload in a private workspace that is removed once the
// response has been written.
//
// The JSON endpoints /api/status, /api/models, /api/jobs and /api/jobs/{id}
// report daemon state for the CLI. All routes except /healthz honour the
// optional bearer token.
package server
