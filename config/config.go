// Package config loads the deployment-level server configuration from YAML:
// instrument names, transport ports and discovery settings. Library-level
// tuning stays with the functional options of each package.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-lxi/socket"
)

// Config is the top-level server configuration.
type Config struct {
	// Host is the local address to bind all listeners to.
	Host string `yaml:"host"`

	// Instruments is the set of logical instrument names the server exposes.
	// An empty list allows instruments to be created on first reference.
	Instruments []string `yaml:"instruments"`

	// Identity describes the device in the LXI identification document.
	Identity Identity `yaml:"identity"`

	Socket SocketConfig `yaml:"socket"`
	Telnet SocketConfig `yaml:"telnet"`
	HTTP   HTTPConfig   `yaml:"http"`

	Discovery DiscoveryConfig `yaml:"discovery"`
}

// Identity describes the device identity published over HTTP and mDNS.
type Identity struct {
	Manufacturer     string `yaml:"manufacturer"`
	Model            string `yaml:"model"`
	SerialNumber     string `yaml:"serial_number"`
	FirmwareRevision string `yaml:"firmware_revision"`
}

// SocketConfig configures one line-framed SCPI listener.
type SocketConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	// Instrument is the logical instrument sessions bind to.
	Instrument string `yaml:"instrument"`
}

// HTTPConfig configures the LXI identification endpoint.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// DiscoveryConfig configures mDNS announcement.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration a bare server starts with: one
// instrument, raw socket and telnet on their standard ports, HTTP on 8080.
func Default() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Instruments: []string{"inst0"},
		Identity: Identity{
			Manufacturer:     "go-lxi",
			Model:            "demo",
			SerialNumber:     "0",
			FirmwareRevision: "0.0.0",
		},
		Socket: SocketConfig{Enabled: true, Port: socket.StandardPort, Instrument: "inst0"},
		Telnet: SocketConfig{Enabled: true, Port: socket.TelnetStandardPort, Instrument: "inst0"},
		HTTP:   HTTPConfig{Enabled: true, Port: 8080},
	}
}

// Load reads a YAML configuration file, applying defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, applying defaults for unset fields.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (cfg *Config) Validate() error {
	if cfg.Host == "" {
		return errors.New("host is empty")
	}

	for _, port := range []int{cfg.Socket.Port, cfg.Telnet.Port, cfg.HTTP.Port} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("port %d is out of range [0, 65535]", port)
		}
	}

	known := make(map[string]struct{}, len(cfg.Instruments))
	for _, name := range cfg.Instruments {
		if name == "" {
			return errors.New("instrument name is empty")
		}
		known[name] = struct{}{}
	}

	// Listeners must reference declared instruments when the set is fixed.
	if len(cfg.Instruments) > 0 {
		for _, sc := range []SocketConfig{cfg.Socket, cfg.Telnet} {
			if !sc.Enabled || sc.Instrument == "" {
				continue
			}
			if _, ok := known[sc.Instrument]; !ok {
				return fmt.Errorf("listener references undeclared instrument %q", sc.Instrument)
			}
		}
	}

	return nil
}
