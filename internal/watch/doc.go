// Package watch owns the filesystem notification subscription for the source
// directory and the worker pool that feeds notified paths to the ingest
// handler.
//
// Subscribing and starting workers are separate steps so the daemon can buffer
// notifications while the backlog scan runs. Stop unsubscribes first, then
// lets workers finish everything already queued before returning.
package watch
