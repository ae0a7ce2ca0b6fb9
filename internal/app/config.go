package app

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"keyward/internal/config"
	"keyward/internal/logging"
)

// EnvHome overrides the default keyward home directory.
const EnvHome = "KEYWARD_HOME"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home           string       // config directory, e.g. $HOME/.keyward
	ConfigPath     string       // optional; defaults to Home/config.json
	KeyringBackend string       // optional keyring backend name; empty selects the platform default
	HTTP           *http.Client // optional; defaults to http.DefaultClient
	Log            logging.Logger
}

// ResolveHome returns flag if set, else $KEYWARD_HOME, else ~/.keyward.
func ResolveHome(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(EnvHome); env != "" {
		return env, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".keyward"), nil
}

// Path returns the configuration file path.
func (c Config) Path() (string, error) {
	if c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	if c.Home == "" {
		return "", errors.New("app: home directory not set")
	}
	return filepath.Join(c.Home, config.FileName), nil
}

// KeyringDir is where the file keyring backend keeps its entries.
func (c Config) KeyringDir() string {
	if c.Home == "" {
		return ""
	}
	return filepath.Join(c.Home, "keyring")
}
