package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kidney-story/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type actorKey struct{}

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadHeader     = errors.New("invalid authorization header format")
	errBadClaims     = errors.New("invalid token claims")
)

// TokenParser turns a bearer token into the identity of the caller.
type TokenParser func(token string) (domain.Actor, error)

// JWTParser validates HS256 access tokens signed with secret and reads the
// user_id and role claims.
func JWTParser(secret string) TokenParser {
	return func(tokenString string) (domain.Actor, error) {
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil {
			return domain.Anonymous, err
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			return domain.Anonymous, errBadClaims
		}
		rawID, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(rawID)
		if err != nil || userID == uuid.Nil {
			return domain.Anonymous, errBadClaims
		}
		role, ok := claims["role"].(string)
		if !ok || !domain.ValidRole(role) {
			return domain.Anonymous, errBadClaims
		}
		return domain.Actor{UserID: userID, Role: role}, nil
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", errBadHeader
	}
	return token, nil
}

func rejectToken(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Debug("Token validation failed", zap.Error(err))
	switch {
	case errors.Is(err, errMissingHeader), errors.Is(err, errBadHeader), errors.Is(err, errBadClaims):
		RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		RespondWithError(w, http.StatusUnauthorized, "token expired")
	default:
		RespondWithError(w, http.StatusUnauthorized, "invalid token")
	}
}

// AuthMiddleware requires a valid bearer token and stores the caller in the
// request context.
func AuthMiddleware(parse TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				rejectToken(w, logger, err)
				return
			}
			actor, err := parse(token)
			if err != nil {
				rejectToken(w, logger, err)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", actor.UserID.String()),
				zap.String("role", actor.Role),
			)
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalAuthMiddleware lets anonymous requests through as
// domain.Anonymous. A token that is present must still be valid.
func OptionalAuthMiddleware(parse TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	required := AuthMiddleware(parse, logger)
	return func(next http.Handler) http.Handler {
		withAuth := required(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			withAuth.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the caller stored by the auth middleware, or
// domain.Anonymous.
func ActorFrom(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorKey{}).(domain.Actor); ok {
		return actor
	}
	return domain.Anonymous
}
