package logic2

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultInstallPaths returns the well-known install locations of the Logic
// desktop application for the current platform.
func DefaultInstallPaths() []string {
	switch runtime.GOOS {
	case "windows":
		programFiles := os.Getenv("ProgramFiles")
		programFilesX86 := os.Getenv("ProgramFiles(x86)")
		home, _ := os.UserHomeDir()
		return []string{
			filepath.Join(programFiles, "Saleae", "Logic", "Logic.exe"),
			filepath.Join(programFiles, "Logic", "Logic.exe"),
			filepath.Join(programFilesX86, "Saleae", "Logic", "Logic.exe"),
			filepath.Join(home, "AppData", "Local", "Programs", "Saleae", "Logic", "Logic.exe"),
		}
	case "darwin":
		return []string{
			"/Applications/Logic2.app/Contents/MacOS/Logic2",
			"/Applications/Logic.app/Contents/MacOS/Logic",
		}
	default:
		home, _ := os.UserHomeDir()
		return []string{
			"/usr/bin/logic2",
			"/usr/local/bin/logic2",
			"/opt/logic2/Logic",
			filepath.Join(home, ".local", "bin", "logic2"),
		}
	}
}

// FindApp probes the default install paths and returns the first existing
// executable.
func FindApp() (string, error) {
	for _, path := range DefaultInstallPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("Logic application not found in any known install location")
}

// LaunchApp starts the Logic desktop application in the background so its
// automation server becomes available.
func LaunchApp(path string) error {
	cmd := exec.Command(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", path, err)
	}
	// Detach: the app outlives the toolkit process.
	return cmd.Process.Release()
}

// RetryPolicy controls ConnectWithRetry.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Launch enables starting the desktop application when the first
	// connection attempt fails.
	Launch bool
}

// DefaultRetryPolicy matches the behavior of the desktop integration: three
// attempts with a two second pause, launching the app after the first
// failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 2 * time.Second, Launch: true}
}

// ConnectWithRetry dials the automation endpoint, optionally launching the
// desktop application and retrying while it starts up. The last connection
// error is returned when every attempt fails.
func ConnectWithRetry(host string, port int, timeout time.Duration, policy RetryPolicy) (*Client, error) {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}

	launched := false
	var lastErr error

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		client, err := Dial(host, port, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err

		if policy.Launch && !launched {
			if path, findErr := FindApp(); findErr == nil {
				if launchErr := LaunchApp(path); launchErr == nil {
					launched = true
				}
			}
		}

		if attempt < policy.Attempts-1 {
			time.Sleep(policy.Delay)
		}
	}

	return nil, lastErr
}
