package domain

import "errors"

// Sentinel errors for the per-file pipeline. Callers branch with errors.Is.
var (
	// ErrNoFunctions means the source declares no functions. Fatal for the file, never retried.
	ErrNoFunctions = errors.New("no functions found")
	// ErrBackend wraps transport and response-shape failures. Retryable.
	ErrBackend = errors.New("backend failure")
	// ErrInsufficientOutput means generation succeeded but produced too little usable text. Retryable.
	ErrInsufficientOutput = errors.New("insufficient output")
	// ErrWrite means the test module could not be written. Fatal for the file.
	ErrWrite = errors.New("write failure")
	// ErrFilesList means the input file list could not be read. Fatal for the run.
	ErrFilesList = errors.New("files list unavailable")
)
