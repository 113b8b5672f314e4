// Package language normalizes the language hints clients send with a
// transcription request.
//
// Requests may name a language as an ISO 639-1/639-2 code, a BCP 47 tag
// ("pt-BR") or an English word ("czech"); the runtime wants a bare base code.
// Parsing and display names come from golang.org/x/text.
package language
