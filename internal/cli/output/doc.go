// Package output renders command results for the prodadmin CLI.
//
// Results are written as an aligned table (the default), JSON or YAML.
// Table columns come from exported struct fields; a `table:"wide"` tag
// hides a column unless wide output is requested and `table:"-"` hides it
// always. A Spinner marks long-running calls on interactive terminals.
package output
