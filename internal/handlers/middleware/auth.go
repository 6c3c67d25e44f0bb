// internal/handlers/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ammerola/stockledger/internal/pkg/logger"
)

// Roles known to the ledger
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// Actor is the authenticated caller of a request
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// Claims is the token payload issued by the auth service
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type actorKey struct{}

type actorSlotKey struct{}

type actorSlot struct {
	actor *Actor
}

var errMissingToken = errors.New("missing bearer token")

// WithActor stores actor in ctx
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, actor)
	ctx = logger.WithValue(ctx, logger.ContextKeyActorID, actor.ID.String())
	ctx = logger.WithValue(ctx, logger.ContextKeyActorRole, actor.Role)
	if slot, ok := ctx.Value(actorSlotKey{}).(*actorSlot); ok {
		slot.actor = &actor
	}
	return ctx
}

// ActorFromContext returns the authenticated actor, if any
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// Authenticate verifies an HS256 bearer token and stores its actor in the
// request context. issuer is checked only when non-empty.
func Authenticate(secret, issuer string) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := parseActor(parser, key, r)
			if err != nil {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "authentication failed",
					"error", err.Error())
				w.Header().Set("WWW-Authenticate", `Bearer realm="stockledger"`)
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func parseActor(parser *jwt.Parser, key []byte, r *http.Request) (Actor, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Actor{}, errMissingToken
	}

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}); err != nil {
		return Actor{}, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, errors.New("subject is not an actor id")
	}
	if !slices.Contains([]string{RoleAdmin, RoleManager, RoleCashier}, claims.Role) {
		return Actor{}, errors.New("unknown role")
	}

	return Actor{ID: id, Name: claims.Name, Role: claims.Role}, nil
}

// RequireRole rejects actors whose role is not listed
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing credentials")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				WriteError(w, http.StatusForbidden, "forbidden", "Insufficient role for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
