package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "shanoir-downloader"

// Config file name.
const configFileName = "config.toml"

// uploaderDirGlob matches the configuration folders created by ShanoirUploader
// (~/.su_v8.2.0 and so on). They hold the proxy.properties file.
const uploaderDirGlob = ".su_v*"

// proxyFileName is the key=value proxy configuration shared with ShanoirUploader.
const proxyFileName = "proxy.properties"

// logFileTimeLayout renders as 2024-05-01_14h03m59.
const logFileTimeLayout = "2006-01-02_15h04m05"

// nowFunc is overridden in tests.
var nowFunc = time.Now

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/shanoir-downloader).
// On macOS, uses ~/Library/Application Support/shanoir-downloader.
// Other platforms fall back to ~/.config/shanoir-downloader.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxConfigDir(home)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// linuxConfigDir returns the XDG-compliant config directory for Linux.
func linuxConfigDir(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither SHANOIR_DOWNLOADER_CONFIG nor
// --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultConfigurationFolder returns the newest ShanoirUploader folder in
// home (the lexicographically last ~/.su_v*), or home itself when there is
// none.
func DefaultConfigurationFolder(home string) string {
	matches, err := filepath.Glob(filepath.Join(home, uploaderDirGlob))
	if err != nil || len(matches) == 0 {
		return home
	}

	sort.Strings(matches)

	return matches[len(matches)-1]
}

// DefaultLogFile returns the timestamped log file path inside outputDir.
func DefaultLogFile(outputDir string) string {
	return filepath.Join(outputDir, "downloads"+nowFunc().Format(logFileTimeLayout)+".log")
}
