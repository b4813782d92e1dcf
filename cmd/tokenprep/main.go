package main

import "tokenprep/internal/cli"

func main() {
	cli.Execute()
}
