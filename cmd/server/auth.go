// Authentication for the TCP server.
package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wiredb/wiredb/core"
	"github.com/wiredb/wiredb/db"
)

// AuthConfig configures server authentication.
type AuthConfig struct {
	// Enabled gates every statement behind an AUTH handshake.
	Enabled bool

	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

func (cs *ConnectionState) IsAuthenticated() bool {
	return cs.authenticated
}

func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

// validateJWT validates a token and extracts the name/email claims.
func (s *Server) validateJWT(tokenString string) (core.Identity, time.Time, error) {
	if s.authConfig == nil || s.authConfig.JWTSecret == "" {
		return core.Identity{}, time.Time{}, errors.New("authentication not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	if err != nil {
		return core.Identity{}, time.Time{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return core.Identity{}, time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return core.Identity{}, time.Time{}, errors.New("invalid token claims")
	}

	if s.authConfig.Issuer != "" {
		issuer, _ := claims.GetIssuer()
		if issuer != s.authConfig.Issuer {
			return core.Identity{}, time.Time{}, fmt.Errorf("invalid issuer: expected %s, got %s", s.authConfig.Issuer, issuer)
		}
	}

	if s.authConfig.Audience != "" {
		audiences, _ := claims.GetAudience()
		found := false
		for _, aud := range audiences {
			if aud == s.authConfig.Audience {
				found = true
				break
			}
		}
		if !found {
			return core.Identity{}, time.Time{}, fmt.Errorf("invalid audience: expected %s", s.authConfig.Audience)
		}
	}

	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	if name == "" && email == "" {
		return core.Identity{}, time.Time{}, errors.New("token missing identity claims (name or email)")
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return core.Identity{Name: name, Email: email}, expiresAt, nil
}

// parseAuthCommand parses an AUTH line. The only supported form is
// AUTH JWT <token>.
func parseAuthCommand(line string) (token string, err error) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) < 3 || !strings.EqualFold(parts[0], "AUTH") {
		return "", errors.New("invalid AUTH command: expected AUTH JWT <token>")
	}
	if !strings.EqualFold(parts[1], "JWT") {
		return "", fmt.Errorf("unsupported auth type: %s", parts[1])
	}
	return parts[2], nil
}

// handleAuth processes an AUTH line and answers in the regular result
// wire format.
func (s *Server) handleAuth(line string, state *ConnectionState) db.QueryResult {
	token, err := parseAuthCommand(line)
	if err != nil {
		return db.QueryResult{Message: err.Error()}
	}

	identity, expiresAt, err := s.validateJWT(token)
	if err != nil {
		return db.QueryResult{Message: err.Error()}
	}

	state.identity = &identity
	state.authenticated = true
	state.tokenExpiry = expiresAt

	return db.QueryResult{
		Success: true,
		Message: fmt.Sprintf("authenticated as %s <%s>", identity.Name, identity.Email),
	}
}
