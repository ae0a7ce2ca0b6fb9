// Package session holds the identity key and the sessions bound to it.
//
// A Store moves between two states:
//
//	NoIdentity --ProvisionIdentity--> IdentityProvisioned
//	IdentityProvisioned --RotateIdentity--> IdentityProvisioned (sessions cleared)
//
// Sessions are established through a domain.KeyAgreement and keyed by
// the session ID it derives. Rotating the identity drops every session
// in the same critical section, so no session ever outlives the
// identity it was negotiated with.
package session
