package main

import (
	"log"
	"net/http"
	"os"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	hub := newHub()
	limiter := newRateLimiter()

	mux := http.NewServeMux()

	// Reference endpoints for the match form
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/universities", universitiesHandler)

	// Ephemeral handshake ticket
	mux.Handle("/token", issueTokenHandler())

	// WebSocket pairing & chat endpoint
	mux.Handle("/ws", wsHandler(hub, limiter))

	addr := ":" + envOr("PORT", "8080")
	log.Printf("Starting AnonUni backend on %s...", addr)
	log.Fatal(http.ListenAndServe(addr, withCORS(mux)))
}
