// Package memory provides in-memory session storage for prodadmin.
//
// Values vanish with the process, which is what the interactive shell
// wants: closing the shell ends the session.
package memory
