// Package storage provides session-scoped credential storage for prodadmin.
//
// A Storage holds the values that live exactly as long as one client
// session, the way a browser tab's sessionStorage does:
//
//   - memory: process-lifetime map, used by the interactive shell
//   - badger: Badger database with per-entry TTL, shared by consecutive
//     single-command invocations until the session TTL runs out
//
// Clear wipes everything the storage holds; logout relies on it.
package storage
