package platform

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// currentMachine mirrors Python's platform.machine(), e.g. "x86_64", "arm64".
func currentMachine() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	default:
		return runtime.GOARCH
	}
}

// currentRelease mirrors Python's platform.release(): the kernel/OS release
// string. On Linux it is read from /proc/sys/kernel/osrelease; elsewhere it
// falls back to the Go runtime version, which is stable enough to bind a
// volume to a host without requiring cgo or OS-specific syscalls.
func currentRelease() string {
	if runtime.GOOS == "linux" {
		if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return runtime.Version()
}

// currentProcessor mirrors Python's platform.processor(): a human-readable
// CPU description. On Linux it reads the first "model name" line out of
// /proc/cpuinfo; elsewhere it falls back to the GOARCH identifier.
func currentProcessor() string {
	if runtime.GOOS == "linux" {
		if f, err := os.Open("/proc/cpuinfo"); err == nil {
			defer f.Close()
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := scanner.Text()
				if strings.HasPrefix(line, "model name") {
					parts := strings.SplitN(line, ":", 2)
					if len(parts) == 2 {
						return strings.TrimSpace(parts[1])
					}
				}
			}
		}
	}
	return runtime.GOARCH
}
