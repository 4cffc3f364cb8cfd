package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

type reviewerKey struct{}

// AuthRequired rejects requests without a verified access token and stores
// the reviewer id for handlers. It runs after jwtauth.Verifier.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, jwt.ErrInvalidToken)
				return
			}

			reviewerID, err := jwtService.ReviewerID(claims)
			if err != nil {
				response.HandleError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), reviewerKey{}, reviewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// ReviewerFromContext returns the reviewer set by AuthRequired.
func ReviewerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(reviewerKey{}).(string)
	return id, ok && id != ""
}
