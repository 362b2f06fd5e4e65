package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

var (
	errAccountInactive = errors.New("account is not active")
	errTokenRevoked    = errors.New("token has been revoked")
)

// MiddlewareDB authenticates bearer tokens against the users collection.
type MiddlewareDB struct {
	DB     databases.UserDatabase
	Tokens *TokenIssuer

	authenticator auth.Authenticator
	strategy      auth.Strategy
}

// SetupGoGuardian wires a cached bearer strategy. Verified tokens are cached
// for cacheTTL, so account changes take at most that long to reach sessions
// that are not explicitly revoked.
func (m *MiddlewareDB) SetupGoGuardian(ctx context.Context, cacheTTL time.Duration) {
	cache := store.NewFIFO(ctx, cacheTTL)
	m.strategy = bearer.New(m.verifyToken, cache)
	m.authenticator = auth.New()
	m.authenticator.EnableStrategy(bearer.CachedStrategyKey, m.strategy)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context.
func (m *MiddlewareDB) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Infow("unauthorized", "url", r.URL.Path, "error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
			return
		}
		caller, err := callerFromInfo(info)
		if err != nil {
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// Optional authenticates the request when it carries a bearer token and
// passes anonymous requests through unchanged. A token that fails
// verification is still rejected.
func (m *MiddlewareDB) Optional(next http.Handler) http.Handler {
	authed := m.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := BearerToken(r); !ok {
			next.ServeHTTP(w, r)
			return
		}
		authed.ServeHTTP(w, r)
	})
}

// verifyToken is called by the bearer strategy on a cache miss.
func (m *MiddlewareDB) verifyToken(ctx context.Context, _ *http.Request, token string) (auth.Info, error) {
	claims, err := m.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()
	user, err := m.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.AccountStatus != models.AccountActive {
		return nil, errAccountInactive
	}
	if claims.IssuedAt.Time.Before(user.TokensValidAfter) {
		return nil, errTokenRevoked
	}
	return auth.NewDefaultUser(user.Username, user.ID.Hex(), []string{string(user.Role)}, nil), nil
}

// Revoke evicts the request's bearer token from the verification cache.
func (m *MiddlewareDB) Revoke(r *http.Request) error {
	token, ok := BearerToken(r)
	if !ok {
		return ErrInvalidToken
	}
	return auth.Revoke(m.strategy, token, r)
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func callerFromInfo(info auth.Info) (Caller, error) {
	id, err := primitive.ObjectIDFromHex(info.ID())
	if err != nil {
		return Caller{}, err
	}
	var role workflow.Role
	if groups := info.Groups(); len(groups) > 0 {
		role = workflow.Role(groups[0])
	}
	return Caller{ID: id, Username: info.UserName(), Role: role}, nil
}

// Authorize only lets callers with one of roles through. It must run after Middleware.
func Authorize(roles ...workflow.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, nil)
				return
			}
			for _, role := range roles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			config.ErrorStatus(fmt.Sprintf("role %q is not allowed to access this resource", caller.Role), http.StatusForbidden, w, nil)
		})
	}
}
