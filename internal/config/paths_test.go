package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHome = "/home/testuser"

func TestDefaultConfigDir_NonEmpty(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.True(t, strings.Contains(dir, appName))
}

func TestDefaultConfigPath_EndsWithConfigToml(t *testing.T) {
	path := DefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, "config.toml"))
}

func TestDefaultConfigDir_MacOS(t *testing.T) {
	if runtime.GOOS != platformDarwin {
		t.Skip("macOS-only test")
	}

	dir := DefaultConfigDir()
	assert.Contains(t, dir, "Library/Application Support")
}

func TestLinuxConfigDir_XDGOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	assert.Equal(t, filepath.Join("/custom/config", appName), linuxConfigDir(testHome))
}

func TestLinuxConfigDir_DefaultFallback(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	assert.Equal(t, filepath.Join(testHome, ".config", appName), linuxConfigDir(testHome))
}

func TestDefaultConfigurationFolder_PicksNewestUploaderDir(t *testing.T) {
	home := t.TempDir()
	for _, name := range []string{".su_v7.0.1", ".su_v8.2.0", ".su_v8.1.3"} {
		require.NoError(t, os.Mkdir(filepath.Join(home, name), 0o700))
	}

	assert.Equal(t, filepath.Join(home, ".su_v8.2.0"), DefaultConfigurationFolder(home))
}

func TestDefaultConfigurationFolder_FallsBackToHome(t *testing.T) {
	home := t.TempDir()

	assert.Equal(t, home, DefaultConfigurationFolder(home))
}

func TestDefaultLogFile_Timestamped(t *testing.T) {
	old := nowFunc
	t.Cleanup(func() { nowFunc = old })

	nowFunc = func() time.Time {
		return time.Date(2024, time.May, 1, 14, 3, 59, 0, time.UTC)
	}

	assert.Equal(t, filepath.Join("/data/out", "downloads2024-05-01_14h03m59.log"), DefaultLogFile("/data/out"))
}
