package app

import (
	"net/http"
	"time"

	"keyward/internal/config"
	"keyward/internal/crypto"
	"keyward/internal/domain"
	"keyward/internal/keysource"
	"keyward/internal/protocol/x3dh"
	"keyward/internal/relay"
	"keyward/internal/services/vault"
)

// Wire bundles the resolver, stores, and clients for the CLI.
type Wire struct {
	Path   string
	Config *config.Config
	Keys   *keysource.Resolver
	Cipher *crypto.AEAD
	Vault  *vault.Vault
	Relay  domain.RelayClient
	HTTP   *http.Client
}

// NewWire loads the configuration and constructs the dependency graph
// from cfg. The keyring is not opened until a key is needed.
func NewWire(cfg Config) (*Wire, error) {
	return NewWireWithStore(cfg, keysource.NewKeyring(cfg.KeyringBackend, cfg.KeyringDir()))
}

// NewWireWithStore is NewWire with an explicit secret store.
func NewWireWithStore(cfg Config, secrets domain.SecretStore) (*Wire, error) {
	path, err := cfg.Path()
	if err != nil {
		return nil, err
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	params, err := file.KDF.Params()
	if err != nil {
		return nil, err
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	keys := keysource.New(secrets, keysource.WithKDF(params), keysource.WithLogger(cfg.Log))
	cipher := crypto.NewAEAD(keys)

	return &Wire{
		Path:   path,
		Config: file,
		Keys:   keys,
		Cipher: cipher,
		Vault:  vault.New(path, cipher, x3dh.NewInitiator(), cfg.Log),
		Relay:  relay.NewHTTP(file.Network.RelayURL, httpClient, time.Duration(file.Network.Timeout)),
		HTTP:   httpClient,
	}, nil
}
