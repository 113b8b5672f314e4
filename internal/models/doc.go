// Package models enumerates the supported speech-recognition model sizes and
// provides the process-wide cache of loaded model handles.
//
// The cache is an ordinary value owned by the daemon (or CLI) and handed to
// whoever needs models; tests construct their own with a fake LoadFunc.
package models
