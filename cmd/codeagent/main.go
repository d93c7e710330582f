package main

import "codeagent/internal/cli"

func main() {
	cli.Execute()
}
