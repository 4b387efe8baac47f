package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
)

// Keys of proxy.properties, after the "proxy." prefix is removed.
const (
	proxyKeyPrefix   = "proxy."
	proxyKeyEnabled  = "enabled"
	proxyKeyUser     = "user"
	proxyKeyPassword = "password"
	proxyKeyHost     = "host"
	proxyKeyPort     = "port"
)

// PasswordPrompt asks the user for a secret. Implementations must not echo it.
type PasswordPrompt func(prompt string) (string, error)

// ReadProxyProperties parses a ShanoirUploader proxy.properties file.
// Returns (nil, nil) when the file does not exist or the proxy is disabled.
// The proxy counts as enabled unless proxy.enabled is present and not "true".
func ReadProxyProperties(path string) (*Proxy, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	props := make(map[string]string)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, proxyKeyPrefix) {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		// proxy.http.host and proxy.host both land on "host".
		key = strings.TrimSpace(key)
		key = key[strings.LastIndex(key, ".")+1:]
		props[key] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if enabled, ok := props[proxyKeyEnabled]; ok && enabled != "true" {
		return nil, nil //nolint:nilnil // disabled proxy
	}

	if props[proxyKeyHost] == "" {
		return nil, fmt.Errorf("%s: proxy is enabled but proxy.host is empty", path)
	}

	return &Proxy{
		Scheme:   "http",
		Host:     props[proxyKeyHost],
		Port:     props[proxyKeyPort],
		User:     props[proxyKeyUser],
		Password: props[proxyKeyPassword],
	}, nil
}

// ParseProxyURL parses the "user@host:port" form accepted by --proxy_url.
// The password is never part of the flag; the caller prompts for it.
func ParseProxyURL(raw string) (*Proxy, error) {
	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return nil, fmt.Errorf("proxy url %q: expected user@host:port", raw)
	}

	p := &Proxy{Scheme: "http", User: raw[:at]}

	hostPort := raw[at+1:]
	if !strings.Contains(hostPort, ":") {
		p.Host = hostPort
		return p, nil
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err != nil {
		return nil, fmt.Errorf("proxy url %q: %w", raw, err)
	}

	p.Host = host
	p.Port = port

	return p, nil
}
