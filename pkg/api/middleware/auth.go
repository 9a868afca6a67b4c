package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"promptstudio/aegis/pkg/config"
)

// RejectionRecorder counts requests refused before reaching a handler.
type RejectionRecorder interface {
	RecordRejection(reason string)
}

type clientNameKey struct{}

// WithClient stores the authenticated client name in ctx.
func WithClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientNameKey{}, name)
}

// ClientFromContext returns the authenticated client name, if any.
func ClientFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientNameKey{}).(string)
	return name, ok && name != ""
}

// ClientKey identifies the caller for rate limiting: the authenticated
// client name when present, otherwise the remote IP.
func ClientKey(r *http.Request) string {
	if name, ok := ClientFromContext(r.Context()); ok {
		return "key:" + name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// KeySet matches presented API keys against the configured ones. Keys are
// held as SHA-256 digests and compared in constant time.
type KeySet struct {
	header string
	keys   []hashedKey
}

type hashedKey struct {
	name   string
	digest [sha256.Size]byte
}

// NewKeySet builds a KeySet from cfg. Disabled keys are left out.
func NewKeySet(cfg config.AuthConfig) *KeySet {
	ks := &KeySet{header: cfg.Header}
	if ks.header == "" {
		ks.header = config.DefaultAuthHeader
	}
	for _, k := range cfg.Keys {
		if k.Disabled || k.Key == "" {
			continue
		}
		ks.keys = append(ks.keys, hashedKey{name: k.Name, digest: sha256.Sum256([]byte(k.Key))})
	}
	return ks
}

// Lookup returns the client name owning key.
func (ks *KeySet) Lookup(key string) (string, bool) {
	digest := sha256.Sum256([]byte(key))
	name, found := "", 0
	for _, k := range ks.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			name, found = k.name, 1
		}
	}
	return name, found == 1
}

// extract reads the key from the configured header or a Bearer token.
func (ks *KeySet) extract(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(ks.header)); v != "" {
		return v
	}
	auth := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// APIKeyAuth rejects requests without a valid key with 401 and stores the
// client name in the context of the rest.
func APIKeyAuth(ks *KeySet, rec RejectionRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ks.extract(r)
			if key == "" {
				reject(w, r, rec, http.StatusUnauthorized, "unauthorized", "missing_api_key", "An API key is required.")
				return
			}
			name, ok := ks.Lookup(key)
			if !ok {
				reject(w, r, rec, http.StatusUnauthorized, "unauthorized", "invalid_api_key", "The API key is not valid.")
				return
			}

			slog.DebugContext(r.Context(), "client authenticated", "client", name, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), name)))
		})
	}
}
