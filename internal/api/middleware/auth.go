package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"

	"qna_catalog/internal/common"
	"qna_catalog/internal/common/security"
	"qna_catalog/internal/domain/model"
)

type contextKey string

const (
	UserIDCtxKey    contextKey = "userID"
	UserRolesCtxKey contextKey = "userRoles"
)

func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token from Authorization header

		if err != nil {
			if strings.Contains(err.Error(), "token not found") || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
			} else {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			}
			return
		}

		if token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}
		userRoles, err := security.GetUserRolesFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
		ctx = context.WithValue(ctx, UserRolesCtxKey, userRoles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return requireAnyRole(next, model.RoleAdmin)
}

// AdminOrModerator guards catalog mutations; both roles may curate the
// question tree.
func AdminOrModerator(next http.Handler) http.Handler {
	return requireAnyRole(next, model.RoleAdmin, model.RoleModerator)
}

func requireAnyRole(next http.Handler, allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roles, ok := r.Context().Value(UserRolesCtxKey).([]string)
		if !ok {
			common.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		for _, role := range roles {
			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
		}
		common.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
	})
}

// Helper to get user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	return userID, ok
}

// Helper to get user roles from context
func GetUserRolesFromContext(ctx context.Context) ([]string, bool) {
	userRoles, ok := ctx.Value(UserRolesCtxKey).([]string)
	return userRoles, ok
}
