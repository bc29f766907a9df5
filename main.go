package main

import (
	"sentifi/internal/cli"
)

func main() {
	cli.Execute()
}
