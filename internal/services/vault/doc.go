// Package vault ties configuration persistence, the sealed crypto
// section and the session store together.
//
// View opens the sealed section read-only. Update runs a mutation and
// writes the resealed section back in a single save; if anything fails
// the file on disk is left as it was.
package vault
