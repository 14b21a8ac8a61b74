// Package mocks provides mock implementations for testing the session layer.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the identity client port. The hand-written doubles for the simpler ports
// live in the auth subpackage.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for IdentityClient interface from internal/ports.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=identity_client_mock.go github.com/target/sessionkit/internal/ports IdentityClient
