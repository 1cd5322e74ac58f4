package main

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mind-engage/gradewise/internal/mcptool"
)

var version = "0.1.0"

func main() {
	s := mcptool.NewServer(version)

	// stdout carries the protocol; log goes to stderr
	log.Println("Starting GradeWise MCP server via stdio...")
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
