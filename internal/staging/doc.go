// Package staging manages per-request scratch directories under work_dir.
//
// A Workspace holds one upload and its rendered document and is removed when
// the request finishes, whatever the outcome. CleanStale sweeps workspaces a
// crashed process left behind.
package staging
