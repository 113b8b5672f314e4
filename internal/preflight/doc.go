// Package preflight provides readiness checks for the filesystem paths and
// external binaries subtitler depends on.
//
// The daemon runs RunAll at startup and logs failures without refusing to
// start, since a missing binary only fails the requests that need it. The
// CLI "subtitler status" command renders the same results as a table.
package preflight
