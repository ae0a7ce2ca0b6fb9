package types

// KeyOrigin names where the master key is currently resolved from.
type KeyOrigin int

const (
	// KeyOriginNone means no master key is available.
	KeyOriginNone KeyOrigin = iota
	// KeyOriginEnv means a pass-phrase is set in the environment.
	KeyOriginEnv
	// KeyOriginKeyringPassphrase means a pass-phrase is held in the OS keyring.
	KeyOriginKeyringPassphrase
	// KeyOriginKeyringRaw means raw key bytes are held in the OS keyring.
	KeyOriginKeyringRaw
)

// String returns a human-readable name for the source.
func (s KeyOrigin) String() string {
	switch s {
	case KeyOriginEnv:
		return "environment pass-phrase"
	case KeyOriginKeyringPassphrase:
		return "keyring pass-phrase"
	case KeyOriginKeyringRaw:
		return "keyring raw key"
	default:
		return "none"
	}
}

// SourceDescriptor reports the active source without exposing the
// key. KeyCheck is a short digest prefix, set only for raw keys.
type SourceDescriptor struct {
	Origin   KeyOrigin `json:"origin"`
	KeyCheck string    `json:"key_check,omitempty"`
}

// MarshalText renders the origin by name in JSON and YAML output.
func (s KeyOrigin) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
