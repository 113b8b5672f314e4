// Package captions renders timed transcription segments into SRT and WebVTT
// subtitle documents.
//
// It owns timestamp formatting (and its inverse), the two-line caption wrap
// policy, and the block layout of both formats. Everything here is pure: no
// I/O, no logging, so the daemon, the CLI and tests share one rendering path
// and produce byte-identical documents.
package captions
