package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting File. Unknown keys are fatal errors with "did you mean?"
// suggestions, since a silently ignored typo is worse than a refusal.
func Load(path string) (*File, error) {
	cfg := DefaultFile()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a File populated with all default values. No config file is required.
func LoadOrDefault(path string) (*File, error) {
	if path == "" {
		return DefaultFile(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultFile(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
// askPassword is only called when --proxy_url was given. The returned
// Settings are validated and final.
func Resolve(env EnvOverrides, cli CLIOverrides, askPassword PasswordPrompt) (Settings, error) {
	// 1. Config path: CLI > env > default.
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Config file, or defaults when absent.
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return Settings{}, err
	}

	// 3. CLI flags the user actually passed.
	applyCLIOverrides(cfg, cli)

	if err := Validate(cfg); err != nil {
		return Settings{}, fmt.Errorf("config validation: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return Settings{}, fmt.Errorf("timeout: %w", err)
	}

	s := Settings{
		Domain:      cfg.Domain,
		Username:    cli.Username,
		Format:      cfg.Format,
		OutputDir:   cli.OutputDir,
		Certificate: cfg.Certificate,
		Timeout:     timeout,
		LogFile:     cli.LogFile,
		LogLevel:    cfg.LogLevel,
	}

	if s.LogFile == "" && s.OutputDir != "" {
		s.LogFile = DefaultLogFile(s.OutputDir)
	}

	// 4. Proxy: --proxy_url wins over proxy.properties.
	if err := resolveProxy(&s, cfg.ConfigurationFolder, cli.ProxyURL, askPassword); err != nil {
		return Settings{}, err
	}

	if err := ValidateSettings(s); err != nil {
		return Settings{}, fmt.Errorf("config validation: %w", err)
	}

	return s, nil
}

// applyCLIOverrides copies explicitly set CLI flags over config file values.
func applyCLIOverrides(cfg *File, cli CLIOverrides) {
	if cli.Domain != nil {
		cfg.Domain = *cli.Domain
	}

	if cli.Format != nil {
		cfg.Format = *cli.Format
	}

	if cli.Timeout != nil {
		cfg.Timeout = cli.Timeout.String()
	}

	if cli.Certificate != nil {
		cfg.Certificate = *cli.Certificate
	}

	if cli.ConfigurationFolder != nil {
		cfg.ConfigurationFolder = *cli.ConfigurationFolder
	}
}

// resolveProxy fills the proxy fields of s.
func resolveProxy(s *Settings, folder, proxyURL string, askPassword PasswordPrompt) error {
	if proxyURL != "" {
		p, err := ParseProxyURL(proxyURL)
		if err != nil {
			return err
		}

		if askPassword == nil {
			return fmt.Errorf("proxy url %q: no way to ask for the proxy password", proxyURL)
		}

		password, err := askPassword(fmt.Sprintf("Proxy password for user %s and host %s: ", p.User, p.Host))
		if err != nil {
			return fmt.Errorf("reading proxy password: %w", err)
		}

		p.Password = password
		s.Proxy = p
		s.ProxySource = ProxyFromFlag

		return nil
	}

	if folder == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			s.ProxySource = ProxyFileNotFound
			return nil
		}

		folder = DefaultConfigurationFolder(home)
	}

	s.ProxyFile = filepath.Join(folder, proxyFileName)

	if _, err := os.Stat(s.ProxyFile); errors.Is(err, fs.ErrNotExist) {
		s.ProxySource = ProxyFileNotFound
		return nil
	}

	p, err := ReadProxyProperties(s.ProxyFile)
	if err != nil {
		return err
	}

	if p == nil {
		s.ProxySource = ProxyDisabled
		return nil
	}

	s.Proxy = p
	s.ProxySource = ProxyFromFile

	return nil
}
