package main

import (
	"os"

	"github.com/JonMunkholm/suppliers/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file only supplies defaults here; real env vars win.
	_ = godotenv.Load()

	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
