package main

import "github.com/avremote-network/avremote/internal/cli"

// version is overridden at build time via -ldflags.
var version = "0.1.0"

func main() {
	cli.Execute(version)
}
