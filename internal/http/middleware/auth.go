// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-credential authentication. Token issuance is
// owned by a separate identity service; this layer only verifies a presented
// credential and resolves it to a user ID. The verifier is an interface so
// tests can substitute a static resolver.
//
// Status mapping:
//   - 401 unauthorized: no credential presented
//   - 403 forbidden:    credential presented but invalid/expired
//
// The SSE stream endpoint is consumed by EventSource, which cannot set
// request headers, so the credential is also accepted as an access_token
// query parameter.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// userIDKey is the Gin context key under which the resolved user ID is stored.
const userIDKey = "userID"

// TokenVerifier resolves a bearer credential to a user identifier.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// JWTVerifier verifies HS256-signed tokens and resolves the subject claim.
type JWTVerifier struct {
	Secret []byte
}

// Verify parses and validates the token, returning its subject.
func (v JWTVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// Auth authenticates the request with the given verifier and stores the
// resolved user ID in the Gin context. Responses use the standard error
// envelope shape so unauthenticated clients see the same format as the rest
// of the API.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing credential",
			})
			return
		}
		uid, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "invalid credential",
			})
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// bearerToken extracts the credential from the Authorization header or, for
// header-less stream consumers, from the access_token query parameter.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") || strings.HasPrefix(h, "bearer ") {
			return strings.TrimSpace(h[len("Bearer "):])
		}
		return ""
	}
	return strings.TrimSpace(c.Query("access_token"))
}

// UserID returns the authenticated user ID stored by Auth, or "" when the
// request is unauthenticated.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
