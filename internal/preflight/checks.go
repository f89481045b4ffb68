package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSameFilesystem verifies that a and b live on the same device, which
// rename(2) requires for an atomic publish.
func CheckSameFilesystem(name, a, b string) Result {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", a, err)}
	}
	if err := unix.Stat(b, &sb); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", b, err)}
	}
	if sa.Dev != sb.Dev {
		return Result{Name: name, Detail: fmt.Sprintf("%s and %s are on different filesystems", a, b)}
	}
	return Result{Name: name, Passed: true, Detail: "same filesystem"}
}
