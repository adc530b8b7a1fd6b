package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
	"golang.org/x/sys/unix"

	"tzbuild/internal/trainzutil"
)

// CheckInstaller verifies the configured installer executable exists. A bare
// name is resolved through PATH; anything with a path separator is checked on
// disk directly.
func CheckInstaller(binary string) Result {
	const name = "Installer binary"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "not configured"}
	}

	if !strings.ContainsAny(binary, `/\`) {
		resolved, err := exec.LookPath(binary)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not found on PATH)", binary)}
		}
		return Result{Name: name, Passed: true, Detail: resolved}
	}

	info, err := os.Stat(binary)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", binary)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", binary, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", binary)}
	}
	if err := unix.Access(binary, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not executable: %v)", binary, err)}
	}
	return Result{Name: name, Passed: true, Detail: binary}
}

// CheckInstallerVersion probes the installer with its version command. A
// working probe is the strongest available signal that batch runs can talk to
// the content manager at all.
func CheckInstallerVersion(ctx context.Context, client *trainzutil.Client) Result {
	const name = "Installer version"

	version, err := client.Version(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("version probe failed (%v)", err)}
	}
	if version == "" {
		version = "unknown"
	}
	return Result{Name: name, Passed: true, Detail: version}
}

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

// CheckReadableDirectory verifies that the directory exists and can be read
// and traversed. The content tree is never written to, so write access is not
// required.
func CheckReadableDirectory(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckHistoryDir verifies the run ledger's parent directory is writable.
// The ledger is advisory, so this check is optional: a broken ledger costs
// the run record, never the run.
func CheckHistoryDir(path string) Result {
	const name = "History ledger"

	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Optional: true, Detail: "no path configured"}
	}
	dir := filepath.Dir(path)
	result := CheckDirectoryAccess(name, dir)
	result.Optional = true
	return result
}

// CheckSingleInstance scans for another process with this executable's name.
// The batch lock is the authoritative guard; this check only warns earlier
// and more readably than a lock timeout does.
func CheckSingleInstance() Result {
	const name = "Concurrent runs"

	self := filepath.Base(os.Args[0])
	processes, err := ps.Processes()
	if err != nil {
		return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("process scan unavailable (%v)", err)}
	}
	pid := os.Getpid()
	for _, proc := range processes {
		if proc.Pid() == pid {
			continue
		}
		if proc.Executable() != self {
			continue
		}
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("another %s process is running (pid %d)", self, proc.Pid())}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "no competing process"}
}
