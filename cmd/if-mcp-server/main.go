package main

import "github.com/insightfinder/mcp-server-go/cmd/if-mcp-server/cmd"

func main() {
	cmd.Execute()
}
