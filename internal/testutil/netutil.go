package testutil

import (
	"net"
	"testing"
)

// ListenTCP создаёт TCP listener на случайном порту.
// Закрывается при завершении теста.
func ListenTCP(tb testing.TB) (net.Listener, string) {
	tb.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create TCP listener: %v", err)
	}
	tb.Cleanup(func() {
		_ = listener.Close()
	})
	return listener, listener.Addr().String()
}

// FreeAddr returns a loopback address that was free a moment ago.
func FreeAddr(tb testing.TB) string {
	tb.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to reserve TCP port: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()
	return addr
}
