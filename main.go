package main

import "github.com/agentnexus/copilot/cmd"

func main() {
	cmd.Execute()
}
