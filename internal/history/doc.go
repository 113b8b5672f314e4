// Package history keeps a SQLite ledger of subtitle requests.
//
// Each upload is recorded when it starts and updated when it succeeds or
// fails, so the CLI and the /api/jobs endpoints can show what the daemon has
// been doing. Jobs left running by a crash are marked failed at startup and
// finished jobs older than the retention window are pruned.
package history
