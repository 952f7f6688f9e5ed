package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/wiredb/wiredb/db"
)

// Server is a TCP server that speaks the pipe-delimited query protocol:
// one statement per line in, one serialized QueryResult per line out.
type Server struct {
	listener   net.Listener
	engine     *db.Engine
	authConfig *AuthConfig
	done       chan struct{}
	wg         sync.WaitGroup
}

func NewServer(engine *db.Engine, authConfig *AuthConfig) *Server {
	return &Server{
		engine:     engine,
		authConfig: authConfig,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("SQL server listening on %s", addr)

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("Read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		statement := strings.TrimSpace(line)
		if statement == "" {
			continue
		}

		switch strings.ToLower(statement) {
		case "quit", "exit":
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
			return
		}

		var result db.QueryResult
		if strings.HasPrefix(strings.ToUpper(statement), "AUTH ") {
			result = s.handleAuth(statement, state)
		} else if s.requiresAuth() && !state.IsAuthenticated() {
			result = db.QueryResult{Message: "authentication required, send AUTH JWT <token>"}
		} else {
			result = s.executeStatement(statement)
		}

		if _, err := fmt.Fprintln(conn, result.Serialize()); err != nil {
			log.Printf("Write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) requiresAuth() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

// executeStatement runs one statement. Transaction protocol errors come
// back from the engine as hard errors and are rendered as failed results
// so the wire format stays uniform.
func (s *Server) executeStatement(statement string) db.QueryResult {
	result, err := s.engine.Execute(statement)
	if err != nil {
		if !db.IsTransactionError(err) {
			log.Printf("Execute error: %v", err)
		}
		return db.QueryResult{Message: err.Error()}
	}
	return result
}
