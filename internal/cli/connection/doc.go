// Package connection is the HTTP transport between prodadmin and the
// backend.
//
// HTTPClient normalises the server address, encodes JSON bodies and
// returns the complete response. It does not interpret status codes:
// classification into success, forbidden or failure belongs to the
// callers in core/service. ErrorMessage extracts the "message" field the
// backend puts in its error bodies.
package connection
