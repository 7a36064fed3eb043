// Package services defines the error taxonomy shared by every pipeline
// component and the bounded retry helper for transient I/O failures.
//
// Errors are tagged with sentinel markers so callers can classify a failure
// without string matching: configuration errors abort a run before any
// filesystem mutation, integrity errors mark a single action failed without
// stopping the run, and transient errors are retried a bounded number of
// times before being recorded as failed.
package services
