package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type probeConfig struct {
	Port int `env:"MOCKDECK_PORT, default=8080"`
}

func main() {
	var cfg probeConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		os.Exit(1)
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/__admin/health", cfg.Port))
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
