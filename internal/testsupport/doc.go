// Package testsupport holds fixtures shared by package tests: temp-dir
// configs, stub binaries on PATH, an opened history store and canned models.
package testsupport
