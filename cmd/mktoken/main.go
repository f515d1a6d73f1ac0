package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/models"
)

// mktoken mints a session token for local testing. Production tokens are
// issued by the marketplace backend with the same shared secret.
func main() {
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Shared JWT secret (defaults to JWT_SECRET)")
	userID := flag.Int64("user", 0, "User ID")
	role := flag.String("role", "", "Role: care_giver, care_recipient, admin or support")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" || *userID == 0 || *role == "" {
		fmt.Fprintln(os.Stderr, "Usage: mktoken -secret <jwt-secret> -user <id> -role <role> [-ttl 24h]")
		os.Exit(1)
	}

	if _, ok := models.ParseRole(*role); !ok {
		fmt.Fprintf(os.Stderr, "Invalid role: %s\n", *role)
		os.Exit(1)
	}

	verifier, err := auth.NewTokenVerifier(*secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up signer: %v\n", err)
		os.Exit(1)
	}

	token, err := verifier.Sign(*userID, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
