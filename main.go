package main

import (
	"os"

	"github.com/baodaydungsone/chai/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; the environment wins over it.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
