package preflight

import (
	"errors"
	"fmt"
	"strings"

	"xmlwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every startup check for cfg.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Source directory", cfg.Paths.SourceDir),
		CheckDirectoryAccess("Destination directory", cfg.Paths.DestinationDir),
		CheckDirectoryAccess("Staging directory", cfg.StagingDir()),
		CheckSameFilesystem("Staging filesystem", cfg.StagingDir(), cfg.Paths.DestinationDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
}

// Failed joins the details of every failed result into one error, or returns
// nil when all checks passed.
func Failed(results []Result) error {
	var failures []string
	for _, r := range results {
		if !r.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return errors.New("preflight failed: " + strings.Join(failures, "; "))
}
