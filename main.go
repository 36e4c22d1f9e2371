package main

import (
	"flag"
	"fmt"
	"os"

	"cqrskit/internal/app"
	"cqrskit/internal/pkg/port"
)

func main() {
	configPath := flag.String("config", "", "config file (default: $CQRSKIT_CONFIG or internal/config/config.yaml)")
	flag.Parse()

	a, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "service setup failed: %v\n", err)
		os.Exit(1)
	}

	aPort, err := port.FindAvailablePort(a.Config.HTTP.Port, port.DefaultAttempts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "no port available: %v\n", err)
		os.Exit(1)
	}
	if err := a.Run(fmt.Sprintf("0.0.0.0:%d", aPort)); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped with errors: %v\n", err)
		os.Exit(1)
	}
}
