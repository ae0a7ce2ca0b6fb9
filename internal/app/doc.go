// Package app wires application dependencies for the CLI.
//
// It loads the configuration file named by Config and builds the key
// resolver, cipher, vault and relay client from it, exposing them via
// the Wire struct for commands to use.
package app
