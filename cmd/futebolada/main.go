package main

import "github.com/mcoot/futebolada/internal/cli"

func main() {
	cli.Execute()
}
