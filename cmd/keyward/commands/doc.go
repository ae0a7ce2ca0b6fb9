// Package commands defines the keyward CLI and wires dependencies for subcommands.
//
// Commands
//
//   - key init            Generate a master key in the OS keyring
//   - key status          Report which master key source is active
//   - key set-passphrase  Store a master pass-phrase in the OS keyring
//   - identity init       Provision the identity key
//   - identity rotate     Replace the identity key, dropping all sessions
//   - identity fingerprint
//   - session start       Establish a session with a peer
//   - session list|show|forget
//   - config show|path
//
// # Implementation
//
// The root command builds a logger from --verbose/--debug. Commands that
// need keys or stored state build the dependency graph on first use, so
// "config path" works without a readable config file.
package commands
