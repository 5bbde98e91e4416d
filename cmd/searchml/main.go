package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/quantfold/searchml/cmd/searchml/cmd"
)

func main() {
	// .env is optional; live deployments set the environment directly
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
