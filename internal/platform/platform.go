// Package platform detects the host OS flavor and filesystem quirks that
// change how salesdeck talks to the clipboard and watches files.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL1    Platform = "wsl1"
	PlatformWSL2    Platform = "wsl2"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the current platform. The result is computed once.
func Detect() Platform {
	detectOnce.Do(func() {
		detected = detect(runtime.GOOS, os.Getenv, os.ReadFile, fileExists)
	})
	return detected
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// detect is Detect with its inputs injected.
func detect(goos string, getenv func(string) string, readFile func(string) ([]byte, error), exists func(string) bool) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
	default:
		return PlatformUnknown
	}

	procVersion, _ := readFile("/proc/version")
	version := string(procVersion)
	isWSL := getenv("WSL_DISTRO_NAME") != "" ||
		strings.Contains(version, "microsoft") || strings.Contains(version, "Microsoft")
	if !isWSL {
		return PlatformLinux
	}

	// WSL2 kernels say "microsoft-standard"; WSL1 says "Microsoft".
	switch {
	case strings.Contains(version, "microsoft-standard"):
		return PlatformWSL2
	case strings.Contains(version, "Microsoft"):
		return PlatformWSL1
	case exists("/run/WSL"), exists("/dev/vsock"):
		return PlatformWSL2
	}
	return PlatformWSL1
}

// IsWSL returns true if running in any WSL environment
func IsWSL() bool {
	p := Detect()
	return p == PlatformWSL1 || p == PlatformWSL2
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL1:
		return "WSL1"
	case PlatformWSL2:
		return "WSL2"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// FsnotifyWarning explains why change notifications for path may never
// arrive, or returns "" when the filesystem delivers them normally.
func FsnotifyWarning(path string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}
	return warningFor(mountFSType(string(mounts), absPath))
}

// mountFSType returns the filesystem type of the longest mount point
// containing absPath. mounts uses the /proc/mounts layout.
func mountFSType(mounts, absPath string) string {
	var matchedMount, matchedFsType string
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if !within(absPath, mountPoint) {
			continue
		}
		if len(mountPoint) > len(matchedMount) {
			matchedMount = mountPoint
			matchedFsType = fsType
		}
	}
	return matchedFsType
}

// within reports whether path lies at or below dir.
func within(path, dir string) bool {
	if dir == "/" || path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/")
}

func warningFor(fsType string) string {
	switch {
	case fsType == "9p":
		return "directory file is on a 9p mount (WSL2 Windows filesystem): edits will not be noticed"
	case fsType == "nfs" || fsType == "nfs4":
		return "directory file is on an NFS mount: edits may not be noticed"
	case fsType == "cifs" || fsType == "smbfs":
		return "directory file is on a CIFS/SMB mount: edits may not be noticed"
	case strings.HasPrefix(fsType, "fuse.sshfs"):
		return "directory file is on an SSHFS mount: edits will not be noticed"
	}
	return ""
}
