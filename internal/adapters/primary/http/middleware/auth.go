package middleware

import (
	"net/http"
	"strings"
)

// TokenQueryParam is the query parameter browsers use to pass the credential,
// since they cannot set headers on a websocket handshake.
const TokenQueryParam = "token"

// CredentialFromRequest extracts the bearer credential of a connection
// request. The Authorization header wins over the query parameter.
func CredentialFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}
