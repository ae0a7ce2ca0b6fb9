package domain

import (
	interfaces "keyward/internal/domain/interfaces"
	types "keyward/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username            = types.Username
	Fingerprint         = types.Fingerprint
	SignedPreKeyID      = types.SignedPreKeyID
	OneTimePreKeyID     = types.OneTimePreKeyID
	SessionID           = types.SessionID
	Identity            = types.Identity
	OneTimePreKeyPublic = types.OneTimePreKeyPublic
	PreKeyBundle        = types.PreKeyBundle
	PreKeyMessage       = types.PreKeyMessage
	HandshakeMessage    = types.HandshakeMessage
	RatchetHeader       = types.RatchetHeader
	RatchetState        = types.RatchetState
	Session             = types.Session
	CryptoConfiguration = types.CryptoConfiguration
	KeyOrigin           = types.KeyOrigin
	SourceDescriptor    = types.SourceDescriptor
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
)

// Key origin values.
const (
	KeyOriginNone              = types.KeyOriginNone
	KeyOriginEnv               = types.KeyOriginEnv
	KeyOriginKeyringPassphrase = types.KeyOriginKeyringPassphrase
	KeyOriginKeyringRaw        = types.KeyOriginKeyringRaw
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeySource    = interfaces.KeySource
	SecretStore  = interfaces.SecretStore
	KeyAgreement = interfaces.KeyAgreement
	RelayClient  = interfaces.RelayClient
)
