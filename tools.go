//go:build tools

package tools

// The Runner and Notifier mocks under pkg/*/mocks are generated by the
// mockery v3 binary from .mockery.yaml, so no import is needed here.
// Run: mockery (from the module root) after changing either interface.
