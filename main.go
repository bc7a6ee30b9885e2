package main

import "github.com/kozaktomas/presence-check/cmd"

func main() {
	cmd.Execute()
}
