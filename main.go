package main

import "github.com/geopm-project/platformio-go/cmd"

// version is injected at build time with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
