package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ldraney/pal-e-billing/api/responses"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
)

// APIKeyHeader carries the shared secret of internal callers.
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key does not match expected. An empty expected key
// rejects everything.
func APIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	want := []byte(strings.TrimSpace(expected))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(APIKeyHeader))
			if len(got) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing api key"))
				return
			}
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
