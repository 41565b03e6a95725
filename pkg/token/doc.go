// Package token inspects bearer credentials without verifying them.
//
// The client never holds signing keys, so nothing here establishes trust:
// the backend stays the only authority on whether a credential is valid.
// The helpers only let the client avoid pointless round trips (an expired
// JWT) and refer to a credential in logs without revealing it.
package token
