package util

import "errors"

// Sentinel errors for package util.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Output tree errors
	ErrExpectedFile      = errors.New("expected file, got directory")
	ErrExpectedDirectory = errors.New("expected directory but got file")
	ErrNotWritable       = errors.New("output directory is not writable")

	// Input errors
	ErrMissingWordLists = errors.New("word list directory does not exist")

	// Manifest errors
	ErrManifestMismatch = errors.New("manifest does not match folder contents")
	ErrInvalidDigest    = errors.New("invalid digest format")
)
