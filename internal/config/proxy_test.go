package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProxyProperties(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "proxy.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestReadProxyProperties_Enabled(t *testing.T) {
	path := writeProxyProperties(t, `# ShanoirUploader proxy
proxy.enabled=true
proxy.user=u
proxy.password=p
proxy.host=h
proxy.port=8080
`)

	p, err := ReadProxyProperties(path)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "http://u:p@h:8080", p.URL().String())
}

func TestReadProxyProperties_EnabledByDefault(t *testing.T) {
	path := writeProxyProperties(t, "proxy.host=h\nproxy.port=3128\n")

	p, err := ReadProxyProperties(path)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "http://h:3128", p.URL().String())
}

func TestReadProxyProperties_Disabled(t *testing.T) {
	path := writeProxyProperties(t, "proxy.enabled=false\nproxy.host=h\nproxy.port=8080\n")

	p, err := ReadProxyProperties(path)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestReadProxyProperties_PasswordWithEquals(t *testing.T) {
	path := writeProxyProperties(t, "proxy.user=u\nproxy.password=a=b\nproxy.host=h\nproxy.port=1\n")

	p, err := ReadProxyProperties(path)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "a=b", p.Password)
}

func TestReadProxyProperties_MissingHost(t *testing.T) {
	path := writeProxyProperties(t, "proxy.enabled=true\nproxy.port=8080\n")

	_, err := ReadProxyProperties(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy.host")
}

func TestReadProxyProperties_NotFound(t *testing.T) {
	p, err := ReadProxyProperties(filepath.Join(t.TempDir(), "missing.properties"))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestParseProxyURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Proxy
		wantErr bool
	}{
		{"host and port", "alice@proxy:3128", Proxy{Scheme: "http", User: "alice", Host: "proxy", Port: "3128"}, false},
		{"host only", "alice@proxy", Proxy{Scheme: "http", User: "alice", Host: "proxy"}, false},
		{"user with at sign", "a@b@proxy:1", Proxy{Scheme: "http", User: "a@b", Host: "proxy", Port: "1"}, false},
		{"missing user", "@proxy:1", Proxy{}, true},
		{"missing host", "alice@", Proxy{}, true},
		{"no at sign", "proxy:3128", Proxy{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProxyURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, *p)
		})
	}
}
