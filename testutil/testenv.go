// Package testutil provides shared helpers for the live end-to-end tests.
// It depends only on stdlib so that e2e tests (which cannot import
// internal/) can use it.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables of the live test account.
const (
	EnvTestDomain    = "SHANOIR_TEST_DOMAIN"
	EnvTestUsername  = "SHANOIR_TEST_USERNAME"
	EnvTestDatasetID = "SHANOIR_TEST_DATASET_ID"
	EnvTestSearch    = "SHANOIR_TEST_SEARCH_TEXT"
	EnvPassword      = "shanoir_password"
)

// LiveAccount describes the Shanoir account used by live tests.
type LiveAccount struct {
	Domain     string
	Username   string
	Password   string
	DatasetID  string // optional
	SearchText string // optional
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}

// LoadLiveAccount reads the live account from the environment. ok is false
// when the domain, username or password is missing.
func LoadLiveAccount() (LiveAccount, bool) {
	acc := LiveAccount{
		Domain:     os.Getenv(EnvTestDomain),
		Username:   os.Getenv(EnvTestUsername),
		Password:   os.Getenv(EnvPassword),
		DatasetID:  os.Getenv(EnvTestDatasetID),
		SearchText: os.Getenv(EnvTestSearch),
	}

	return acc, acc.Domain != "" && acc.Username != "" && acc.Password != ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
