// Package config resolves the settings of a shanoir-downloader run. It
// supports a four-layer override chain (defaults -> TOML config file ->
// environment -> CLI flags) and the proxy sources of the Shanoir uploader
// tooling (an explicit proxy URL or a proxy.properties file). The result is a
// single Settings value that is never modified after Resolve returns.
package config

import (
	"net/url"
	"time"
)

// Shanoir realm and API layout. These are fixed by the server deployment.
const (
	tokenPath = "/auth/realms/shanoir-ng/protocol/openid-connect/token"
	apiScheme = "https"
)

// File is the structure parsed from the optional TOML config file. Every
// field is a baseline that CLI flags override.
type File struct {
	Domain              string `toml:"domain"`
	Format              string `toml:"format"`
	Timeout             string `toml:"timeout"`
	Certificate         string `toml:"certificate"`
	ConfigurationFolder string `toml:"configuration_folder"`
	LogLevel            string `toml:"log_level"`
}

// Proxy describes the forward proxy used for plain-http requests.
type Proxy struct {
	Scheme   string
	Host     string
	Port     string
	User     string
	Password string
}

// URL renders the proxy as a URL suitable for http.Transport.Proxy.
// Credentials are embedded only when both user and password are set.
func (p *Proxy) URL() *url.URL {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}

	u := &url.URL{Scheme: scheme, Host: p.Host}
	if p.Port != "" {
		u.Host = p.Host + ":" + p.Port
	}

	if p.User != "" && p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}

	return u
}

// ProxySource records where the proxy setting came from, so the CLI can
// tell the user what happened.
type ProxySource string

// Proxy sources.
const (
	ProxyFromFlag     ProxySource = "flag"
	ProxyFromFile     ProxySource = "file"
	ProxyDisabled     ProxySource = "disabled"
	ProxyFileNotFound ProxySource = "file-not-found"
)

// Settings is the fully resolved configuration of one run. It is passed by
// value; nothing in the program mutates it after Resolve.
type Settings struct {
	Domain      string
	Username    string
	Format      string
	OutputDir   string
	Certificate string // CA bundle path; empty means system roots
	Proxy       *Proxy
	ProxySource ProxySource
	ProxyFile   string // proxy.properties path that was consulted, if any
	Timeout     time.Duration
	LogFile     string
	LogLevel    string
}

// BaseURL returns the root URL of the Shanoir server.
func (s Settings) BaseURL() string {
	return apiScheme + "://" + s.Domain
}

// TokenURL returns the Keycloak token endpoint of the server.
func (s Settings) TokenURL() string {
	return s.BaseURL() + tokenPath
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from "explicitly set", so a flag only overrides the
// config file when the user actually passed it.
type CLIOverrides struct {
	ConfigPath          string
	Username            string
	OutputDir           string
	ProxyURL            string
	LogFile             string
	Domain              *string
	Format              *string
	Timeout             *time.Duration
	Certificate         *string
	ConfigurationFolder *string
}
