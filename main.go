package main

import "github.com/ytget/vod-downloader/internal/cli"

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

// Packaged desktop builds start here and open the window when launched
// without arguments.
func main() {
	cli.Execute(version, cli.CmdGUI)
}
