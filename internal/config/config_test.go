package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyURL_WithCredentials(t *testing.T) {
	p := &Proxy{Host: "h", Port: "8080", User: "u", Password: "p"}

	assert.Equal(t, "http://u:p@h:8080", p.URL().String())
}

func TestProxyURL_WithoutCredentials(t *testing.T) {
	p := &Proxy{Scheme: "http", Host: "proxy.example.org", Port: "3128", User: "u"}

	assert.Equal(t, "http://proxy.example.org:3128", p.URL().String())
}

func TestProxyURL_NoPort(t *testing.T) {
	p := &Proxy{Host: "proxy.example.org"}

	assert.Equal(t, "http://proxy.example.org", p.URL().String())
}

func TestSettings_URLs(t *testing.T) {
	s := Settings{Domain: "shanoir.irisa.fr"}

	assert.Equal(t, "https://shanoir.irisa.fr", s.BaseURL())
	assert.Equal(t, "https://shanoir.irisa.fr/auth/realms/shanoir-ng/protocol/openid-connect/token", s.TokenURL())
}
