// Package main provides the entry point for prodadmin.
//
// prodadmin is the command-line client of the product administration
// backend:
//
//   - Sign in and out, inspect the session
//   - List, create, update, restock and delete products
//   - Local configuration
//
// Usage:
//
//	prodadmin login -u admin
//	prodadmin product list --active-only -o json
//	prodadmin shell --metrics-addr 127.0.0.1:9464
//
// Single commands share one session through a short-lived credential
// store; the shell keeps its session in memory until it exits.
package main
