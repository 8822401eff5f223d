package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/broker-crm-bfa-go/internal/infra/observability"
)

type contextKey string

const agentIDKey contextKey = "agentID"

// DevAgentHeader carries the agent id when token validation is disabled.
const DevAgentHeader = "X-Agent-Id"

// AuthConfig selects how requests are authenticated.
type AuthConfig struct {
	// JWTSecret verifies Supabase access tokens (HS256).
	JWTSecret []byte
	// DevAuth trusts the X-Agent-Id header instead. Local use only.
	DevAuth bool
}

// SupabaseClaims are the claims of a Supabase access token. The agent id is
// the subject.
type SupabaseClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates an HS256 token signed with secret and returns
// its claims.
func ParseAccessToken(tokenString string, secret []byte) (*SupabaseClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SupabaseClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SupabaseClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// AgentAuthMiddleware authenticates the request and injects the agent id
// into the context.
func AgentAuthMiddleware(cfg AuthConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.DevAuth {
				if id := strings.TrimSpace(r.Header.Get(DevAgentHeader)); id != "" {
					serveAs(next, w, r, id)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing access token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			if len(cfg.JWTSecret) == 0 {
				writeError(w, http.StatusUnauthorized, "token validation is not configured")
				return
			}

			claims, err := ParseAccessToken(parts[1], cfg.JWTSecret)
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			serveAs(next, w, r, claims.Subject)
		})
	}
}

func serveAs(next http.Handler, w http.ResponseWriter, r *http.Request, agentID string) {
	observability.AddLogFields(r.Context(), zap.String("agent_id", agentID))
	next.ServeHTTP(w, r.WithContext(WithAgentID(r.Context(), agentID)))
}

// WithAgentID stores the authenticated agent id in ctx.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// AgentIDFromContext extracts the authenticated agent id from context.
func AgentIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(agentIDKey).(string)
	return v
}
