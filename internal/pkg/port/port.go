package port

import (
	"fmt"
	"net"
)

// DefaultAttempts bounds how far FindAvailablePort walks upward.
const DefaultAttempts = 100

func tryBind(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return listener.Close()
}

// FindAvailablePort returns the first bindable port in [startPort, startPort+attempts).
func FindAvailablePort(startPort, attempts int) (int, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	for port := startPort; port < startPort+attempts && port <= 65535; port++ {
		if err := tryBind(port); err == nil {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in [%d, %d)", startPort, startPort+attempts)
}
