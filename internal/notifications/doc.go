// Package notifications delivers operator alerts via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether alerts are enabled. Alerts cover files
// that failed and left the source in place, and the summary of the startup
// backlog pass.
package notifications
