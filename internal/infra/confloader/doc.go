// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (applied by the caller through LoadMap)
//  2. Environment variables (PRODADMIN_ prefix)
//  3. YAML configuration file
//  4. Defaults (LoadMap before any other source)
//
// Environment variables are mapped onto keys already known to the loader,
// so PRODADMIN_AUTH_LOGIN_TIMEOUT resolves to auth.login_timeout when the
// defaults declare that key. Unknown variables fall back to treating every
// underscore as a level separator.
//
// Watcher reports writes to a configuration file using fsnotify so a
// long-running shell can re-apply settings.
package confloader
