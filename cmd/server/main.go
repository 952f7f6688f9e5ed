package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wiredb/wiredb"
	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 3306, "TCP port to listen on")
	baseDir := flag.String("baseDir", "", "Base directory for persistence (memory if empty)")
	useGit := flag.Bool("git", false, "Keep documents in a git repository with one commit per write")
	jwtSecret := flag.String("jwtSecret", "", "Shared secret for JWT authentication (disabled if empty)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wiredb SQL server v%s\n", Version)
		return
	}

	identity := core.Identity{
		Name:  "wiredb server",
		Email: "server@wiredb.local",
	}

	kv, err := openKV(*baseDir, *useGit, identity)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	engine, err := wiredb.Open(kv).Engine()
	if err != nil {
		log.Fatalf("Failed to load tables: %v", err)
	}

	var authConfig *AuthConfig
	if *jwtSecret != "" {
		authConfig = &AuthConfig{Enabled: true, JWTSecret: *jwtSecret}
	}

	server := NewServer(engine, authConfig)
	if err := server.Start(fmt.Sprintf(":%d", *port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Printf("wiredb SQL server v%s listening on port %d\n", Version, *port)
	fmt.Println("Send SQL statements (one per line), 'quit' to disconnect")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Server stopped")
}

func openKV(baseDir string, useGit bool, identity core.Identity) (ps.KV, error) {
	switch {
	case baseDir == "" && useGit:
		log.Println("Using in-memory git storage")
		return ps.NewMemoryGitKV(identity)
	case baseDir == "":
		log.Println("Using in-memory storage")
		return ps.NewMemoryKV(), nil
	case useGit:
		log.Printf("Using git storage: %s", baseDir)
		return ps.NewGitKV(baseDir, identity)
	default:
		log.Printf("Using file storage: %s", baseDir)
		return ps.NewFileKV(baseDir)
	}
}
