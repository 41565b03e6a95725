// Package shutdown runs cleanup hooks when the interactive shell ends.
//
// The shell ends either through an exit command or a termination signal
// (SIGINT, SIGTERM). Both paths funnel into Handler.Shutdown, which runs
// the registered hooks once, newest first, under a shared deadline.
package shutdown
