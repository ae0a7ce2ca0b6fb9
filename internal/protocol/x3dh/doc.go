// Package x3dh implements the X3DH key-agreement used to bootstrap a Double Ratchet
// session between two parties.
//
// # Overview
//
// X3DH lets an initiator derive a shared 32-byte root key with a responder who has
// published a prekey bundle. The bundle contains:
//   - Identity key (X25519) and signing key (Ed25519)
//   - Signed prekey (X25519) and its Ed25519 signature
//   - Optional one-time prekeys (X25519)
//
// # Flows
//
// Initiator (Initiator.Initiate):
//  1. Check the bundle is complete and verify the signed prekey signature.
//  2. Generate an ephemeral X25519 key pair.
//  3. Compute DH values (IKa·SPKb, EKa·IKb, EKa·SPKb[, EKa·OPKb]).
//  4. HKDF over the concatenated DH outputs to produce the root key.
//  5. Hash the public transcript; the hex digest is the session ID.
//  6. Seed a Double Ratchet and encrypt the first message under it.
//
// Responder (Respond):
//  1. Receive the handshake (initiator IK, ephemeral EK, SPKID[, OPKID]).
//  2. Compute the symmetric DH set (SPKb·IKa, IKb·EKa, SPKb·EKa[, OPKb·EKa]).
//  3. Recompute the transcript, check it, and open the first message.
//
// # Errors
//
// domain.ErrMalformedBundle and domain.ErrBadSignedPreKey are returned for
// unusable bundles. ErrTranscriptMismatch is returned when a handshake does
// not match the responder's keys.
//
// # Security notes
//
// Only public material is sent over the wire. One-time prekeys, when present,
// improve forward secrecy by ensuring the handshake mixes in a value that is
// deleted after first use.
package x3dh
