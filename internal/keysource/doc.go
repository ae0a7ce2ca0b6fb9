// Package keysource resolves the master key from the environment or the
// OS keyring.
//
// Resolution order, first match wins:
//
//  1. KEYWARD_PASSPHRASE, stretched with Argon2id
//  2. keyring entry "master-passphrase", stretched the same way
//  3. keyring entry "master-key", a hex-encoded 32-byte key
//
// When none is present Resolve returns domain.ErrNoMasterKey. Every
// resolved key is returned in a secret.Buffer that the caller closes.
package keysource
