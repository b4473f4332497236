// Command token prints a signed bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Domenick1991/heliseats/config"
	"github.com/Domenick1991/heliseats/internal/auth"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/joho/godotenv"
)

func main() {
	role := flag.String("role", string(domain.RolePassenger), "admin or passenger")
	contact := flag.String("contact", "", "passenger phone number or email")
	subject := flag.String("subject", "", "token subject, defaults to the contact")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl_minutes")
	flag.Parse()

	_ = godotenv.Load()
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	principal := domain.Principal{Role: domain.Role(*role), Subject: *subject}
	if principal.Role == domain.RolePassenger {
		c, err := domain.ParseContact(*contact)
		if err != nil {
			log.Fatalf("contact: %v", err)
		}
		principal.Contact = c
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL()
	}

	token, exp, err := auth.NewPolicy(cfg.Auth.AdminSecret, cfg.Auth.PassengerSecret).Issue(principal, lifetime)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.Format("2006-01-02 15:04:05 MST"))
}
