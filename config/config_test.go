package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-lxi/socket"
)

func TestDefault(t *testing.T) {
	require := require.New(t)

	cfg := Default()
	require.NoError(cfg.Validate())
	require.Equal("0.0.0.0", cfg.Host)
	require.Equal([]string{"inst0"}, cfg.Instruments)
	require.Equal(socket.StandardPort, cfg.Socket.Port)
	require.Equal(socket.TelnetStandardPort, cfg.Telnet.Port)
	require.True(cfg.Socket.Enabled)
	require.False(cfg.Discovery.Enabled)
}

func TestParse(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse([]byte(`
host: 127.0.0.1
instruments: [inst0, inst1]
identity:
  manufacturer: Cyberdyne systems
  model: T800 Model 101
  serial_number: A9012.C
  firmware_revision: V2.4
socket:
  port: 15025
  instrument: inst1
discovery:
  enabled: true
`))
	require.NoError(err)

	require.Equal("127.0.0.1", cfg.Host)
	require.Equal([]string{"inst0", "inst1"}, cfg.Instruments)
	require.Equal("Cyberdyne systems", cfg.Identity.Manufacturer)
	require.Equal(15025, cfg.Socket.Port)
	require.Equal("inst1", cfg.Socket.Instrument)
	require.True(cfg.Discovery.Enabled)

	// Unset sections keep their defaults.
	require.Equal(socket.TelnetStandardPort, cfg.Telnet.Port)
	require.Equal(8080, cfg.HTTP.Port)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "host: [unclosed"},
		{"empty host", `host: ""`},
		{"port out of range", "socket:\n  port: 70000"},
		{"empty instrument name", `instruments: ["", inst0]`},
		{"undeclared instrument", "instruments: [inst0]\ntelnet:\n  instrument: inst9"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(os.WriteFile(path, []byte("host: 192.0.2.1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(err)
	require.Equal("192.0.2.1", cfg.Host)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(err)
}
