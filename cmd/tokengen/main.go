// Command tokengen mints a service bearer token for a chat backend.
//
//	SERVICE_TOKEN_KEY=... tokengen -service chat-api -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chatguard/internal/platform/config"
	"chatguard/internal/platform/servicetoken"
)

func main() {
	service := flag.String("service", "", "calling service name (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *service == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -service is required")
		os.Exit(2)
	}

	cfg := config.FromEnv()
	token, err := servicetoken.New(cfg.ServiceTokenKey, cfg.ServiceTokenIssuer, cfg.ServiceTokenAudience).Issue(*service, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
