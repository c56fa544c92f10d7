// Package tests holds shared constants for the integration test suite. The
// suite expects a running server with the environment from the test compose
// file: redis and postgres up, SKEWER_SERVER_TOKEN set to TestToken and
// SKEWER_SERVER_STATIC_DIR pointing at the repository's static directory.
package tests

const (
	BaseURL   = "http://localhost:3000"
	TestToken = "test-token"
)
