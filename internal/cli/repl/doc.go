// Package repl provides the interactive shell of the prodadmin CLI.
//
// The shell keeps one session for the lifetime of the process. It tracks
// the current view (sign-in, dashboard, products), shows it in the prompt,
// and acts as the Navigator the route guard drives. Lines that are not
// shell built-ins are handed to a Dispatcher, normally the CLI app itself.
package repl
