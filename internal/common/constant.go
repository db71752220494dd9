// Package common contains shared constants and sentinel errors used across
// files manager components.
package common

// TokenHeaderName is the HTTP header carrying the session token.
const TokenHeaderName = "X-Token"

// SessionKeyPrefix is prepended to a token to form its session cache key.
const SessionKeyPrefix = "auth_"
