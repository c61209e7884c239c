package main

import (
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/godilite/bonus-panel/internal/cli"
)

func main() {
	_ = godotenv.Load(".env")
	cli.Execute()
}
