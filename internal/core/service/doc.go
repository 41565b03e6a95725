// Package service holds the session and data-access logic of prodadmin.
//
// This package contains:
//
//   - Store: the single owner of the authentication session (init,
//     login, logout, expiry) with explicit change notification
//   - RouteGuard: an observer of the Store that moves the Navigator
//     between the sign-in and landing views
//   - AuthAPI: the backend authentication endpoints used by the Store
//   - Gateway: authorized requests with uniform error classification
//   - ProductService: product CRUD on top of the Gateway
//
// Backend failures surface as *domain.DomainError values; callers match
// them with errors.Is against the domain sentinels.
package service
