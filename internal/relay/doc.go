// Package relay moves pre-key bundles between peers over HTTP.
//
// HTTP implements domain.RelayClient: FetchPreKeyBundle GETs
// /prekey/{username} and decodes the JSON bundle. A 404 maps to
// ErrNotFound; any other non-2xx status is returned with the method, path
// and status text.
//
// Server is the matching in-memory relay used by cmd/keyward-relay and by
// tests. It accepts POST /register and serves the latest bundle per user.
package relay
