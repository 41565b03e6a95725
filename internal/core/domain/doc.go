// Package domain defines the core domain models for prodadmin.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Session: the client-side authentication record and its derived state
//   - View: the locations a user can be on (sign-in, dashboard, products)
//   - Product: the catalogue item managed through the admin screens
//   - Errors: the typed error taxonomy shared by the store and the gateway
package domain
