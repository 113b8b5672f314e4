// Command subtitler is the command line front end for the subtitle service.
//
// It runs the HTTP daemon in the foreground (serve), generates subtitles
// locally or through a running daemon (transcribe), re-renders saved whisper
// output (render), checks subtitle files (inspect), and reports daemon state
// (status, models, jobs). Commands that talk to the daemon read the bind
// address and bearer token from the loaded configuration.
package main
