package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Probes and scrapers reach these without a key.
var publicPaths = map[string]bool{
	"/api/health": true,
	"/metrics":    true,
}

// BearerAuthMiddleware requires "Authorization: Bearer <key>" on every route
// except publicPaths. An empty key list turns it into a no-op.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if msg := checkBearer(r.Header.Get("Authorization"), digests); msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="docuquery"`)
				writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns a client-facing reason on failure and "" on success.
// Keys are compared as digests so every candidate costs the same.
func checkBearer(header string, digests [][sha256.Size]byte) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use Bearer scheme"
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	match := 0
	for i := range digests {
		match |= subtle.ConstantTimeCompare(sum[:], digests[i][:])
	}
	if match != 1 {
		return "invalid api key"
	}
	return ""
}
