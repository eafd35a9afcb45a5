package main

import "github.com/ya55en/pact-showcase/internal/cli"

func main() {
	cli.Execute()
}
