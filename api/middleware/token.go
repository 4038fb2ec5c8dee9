package middleware

import (
	"net/http"
	"strings"

	"github.com/emarket-np/storefront/pkg/restclient"
)

// BearerToken lifts the shopper's bearer token off the request so backend
// calls made on their behalf replay it. The storefront never inspects the
// token itself.
func BearerToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(header, "Bearer "); ok {
				r = r.WithContext(restclient.WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}
