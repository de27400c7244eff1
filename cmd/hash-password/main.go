package main

import (
	"fmt"
	"os"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/service"
	"golang.org/x/term"
)

// Prints a bcrypt hash for the password_hash field of the users file.
func main() {
	cfg := config.Load()
	auth := service.NewAuthService(cfg, nil, nil)

	fmt.Fprint(os.Stderr, "Enter Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading password:", err)
		os.Exit(1)
	}
	if len(password) < 6 {
		fmt.Fprintln(os.Stderr, "Error: Password must be at least 6 characters")
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Confirm Password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil || string(confirm) != string(password) {
		fmt.Fprintln(os.Stderr, "Error: Passwords do not match")
		os.Exit(1)
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error hashing password:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
