package main

import "igait-client/internal/cli"

func main() {
	cli.Execute()
}
