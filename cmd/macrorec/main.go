package main

import "github.com/macrorec-project/macrorec/internal/cli"

func main() {
	cli.Execute()
}
