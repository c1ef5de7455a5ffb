package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/voltkart/voltkart/internal/domain/auth"
	"github.com/voltkart/voltkart/internal/domain/pricing"
	"github.com/voltkart/voltkart/pkg/httpmiddleware"
)

type apiKeyCtxKey struct{}

// APIKeyFrom returns the authenticated key info stored by APIKeyAuth.
func APIKeyFrom(ctx context.Context) *auth.APIKeyInfo {
	info, _ := ctx.Value(apiKeyCtxKey{}).(*auth.APIKeyInfo)
	return info
}

// APIKeyAuth authenticates requests via HMAC-SHA256 hashed API keys carried
// in the X-Api-Key header. B2B pricing requires the b2b scope on the key.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Api-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Constant-time comparison guards against timing side-channels
			// even though the lookup already succeeded; the stored hash could
			// differ from what we computed if the repository returns a wrong
			// row.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if r.URL.Query().Get("tier") == string(pricing.TierB2B) && !info.HasScope(auth.ScopeB2B) {
				writeError(w, http.StatusForbidden, "api key lacks the b2b scope")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyCtxKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
