package main

import "github.com/fleetlens/fleetlens/cmd/fleetlens/cmd"

func main() {
	cmd.Execute()
}
