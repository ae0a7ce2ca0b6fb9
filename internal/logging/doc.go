// Package logging provides the leveled CLI logger used across keyward.
//
// Two flags control verbosity:
//
//   - --verbose shows info messages
//   - --debug additionally shows debug details
//
// Warnings and errors are always written to stderr. Commands create a
// Logger in the root command's PersistentPreRunE and hand it to the
// services they construct.
//
// Debug output must never include key material or plaintext.
package logging
