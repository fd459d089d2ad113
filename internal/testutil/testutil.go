package testutil

import (
	"fmt"
	"net"
)

// RandomPort returns a random free port on 127.0.0.1
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// RandomLocalAddr returns host:port for a currently free local port
func RandomLocalAddr() (string, error) {
	port, err := RandomPort()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("localhost:%d", port), nil
}
