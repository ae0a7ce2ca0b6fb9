// Package config loads and saves keyward's configuration file.
//
// The file is JSON; comments and trailing commas are accepted on load.
// It holds plain settings (relay, tool endpoints, KDF parameters) and one
// sealed field, Crypto, carrying the encrypted identity and sessions.
// A missing file loads as Default(). Saves replace the file atomically
// via a temp file and rename in the same directory, with mode 0600.
package config
