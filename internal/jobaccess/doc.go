// Package jobaccess gives the CLI one read interface over job history,
// backed by the daemon API when it is running and by the history database
// otherwise.
package jobaccess
