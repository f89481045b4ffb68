// Package ingest dispatches watched-directory files to the envelope or plain
// relocation pipeline and reports one Outcome per attempt.
//
// Handler.Handle is the single entry point for both live notifications and the
// startup backlog scan (Reconcile). It serializes work per absolute path,
// absorbs duplicate notifications for files that were already consumed, and
// never lets a per-file failure escape to the caller as anything other than a
// failed Outcome. An envelope's source file is removed only after every Part
// has been published.
package ingest
