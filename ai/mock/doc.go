// Package mock provides test doubles for the ai package interfaces.
//
// The mocks produce deterministic results by default and expose function
// fields for injecting custom behavior, so tests can exercise failure
// modes (timeouts, malformed output) without a running model server.
package mock
