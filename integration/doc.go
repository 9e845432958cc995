//go:build integration

// Package integration provides integration tests for the packager.
//
// These tests require Docker and spin up a real MinIO object store
// using testcontainers. Run with: go test -tags=integration ./integration/...
package integration
