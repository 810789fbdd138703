package main

import (
	"github.com/joho/godotenv"

	"github.com/agenthands/musypher/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
