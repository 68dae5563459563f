package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Connection tickets are short-lived anonymous JWTs: they gate the WS
// handshake but carry no identity, so a reconnect always starts over with a
// fresh connection id.
const connTokenTTL = 2 * time.Minute

func issueTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		tok, err := mintConnToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": tok})
	}
}

func mintConnToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"typ": "ws-ticket",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(connTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

func validConnToken(tokenStr string) bool {
	if tokenStr == "" {
		return false
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	typ, _ := claims["typ"].(string)
	return typ == "ws-ticket"
}
