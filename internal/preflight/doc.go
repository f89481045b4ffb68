// Package preflight provides readiness checks for the filesystem paths the
// daemon depends on.
//
// The daemon calls RunAll once at startup, before the watch subscription is
// established; any failed check aborts startup. The "config validate" command
// runs the same checks to report readiness without starting the service.
package preflight
