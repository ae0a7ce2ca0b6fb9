package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/envelope"
)

// FileName is the configuration file's name inside the keyward home.
const FileName = "config.json"

// Config is the persisted configuration.
type Config struct {
	Network Network                                      `json:"network" yaml:"network"`
	Tools   map[string]Tool                              `json:"tools,omitempty" yaml:"tools,omitempty"`
	KDF     KDF                                          `json:"kdf" yaml:"kdf"`
	Crypto  envelope.Sealed[domain.CryptoConfiguration] `json:"crypto,omitempty" yaml:"-"`
}

// Network configures the relay client.
type Network struct {
	RelayURL string   `json:"relay_url" yaml:"relay_url"`
	Timeout  Duration `json:"timeout" yaml:"timeout"`
}

// Tool is a named endpoint in the tool registry.
type Tool struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// KDF holds the Argon2id parameters. Salt is hex; empty selects the
// built-in application salt.
type KDF struct {
	Time      uint32 `json:"time" yaml:"time"`
	MemoryKiB uint32 `json:"memory_kib" yaml:"memory_kib"`
	Threads   uint8  `json:"threads" yaml:"threads"`
	Salt      string `json:"salt,omitempty" yaml:"salt,omitempty"`
}

// Params converts k to crypto parameters.
func (k KDF) Params() (crypto.KDFParams, error) {
	p := crypto.DefaultKDFParams()
	p.Time, p.MemoryKiB, p.Threads = k.Time, k.MemoryKiB, k.Threads
	if k.Salt != "" {
		salt, err := hex.DecodeString(k.Salt)
		if err != nil {
			return crypto.KDFParams{}, fmt.Errorf("kdf salt: %w", err)
		}
		p.Salt = salt
	}
	if err := p.Validate(); err != nil {
		return crypto.KDFParams{}, err
	}
	return p, nil
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	p := crypto.DefaultKDFParams()
	return &Config{
		Network: Network{
			RelayURL: "http://127.0.0.1:8080",
			Timeout:  Duration(10 * time.Second),
		},
		KDF: KDF{Time: p.Time, MemoryKiB: p.MemoryKiB, Threads: p.Threads},
	}
}

// Validate checks the plain fields.
func (c *Config) Validate() error {
	if c.Network.RelayURL != "" {
		u, err := url.Parse(c.Network.RelayURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("network.relay_url %q is not an absolute URL", c.Network.RelayURL)
		}
	}
	if c.Network.Timeout < 0 {
		return fmt.Errorf("network.timeout must not be negative")
	}
	for name, tool := range c.Tools {
		if tool.Endpoint == "" {
			return fmt.Errorf("tools.%s: endpoint is required", name)
		}
	}
	if _, err := c.KDF.Params(); err != nil {
		return err
	}
	return nil
}
