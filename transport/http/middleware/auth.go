package middleware

import (
	"context"
	"errors"
	"lodge/infras/jwt"
	"lodge/infras/otel"
	"lodge/shared/constant"
	"lodge/shared/failure"
	"lodge/transport/http/response"
	"net/http"
	"slices"

	"github.com/rs/zerolog/log"
)

// Auth validates bearer tokens and stamps the tenant identity onto the
// request context. Every authenticated request carries hotel_id, user_id and
// role downstream.
type Auth interface {
	Authenticate(next http.Handler) http.Handler
	RequireRole(roles ...string) func(http.Handler) http.Handler
}

type authImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
}

func NewAuthMiddleware(jwtService jwt.JWT, otel otel.Otel) Auth {
	return &authImpl{
		jwtService: jwtService,
		otel:       otel,
	}
}

func (m *authImpl) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		authHeader := request.Header.Get(constant.RequestHeaderAuthorization)
		if authHeader == constant.Empty {
			err := failure.Unauthorized("missing authorization header")
			scope.TraceError(err)

			response.WithError(writer, err)

			return
		}

		tokenString, err := jwt.ExtractTokenFromHeader(authHeader)
		if err != nil {
			err := failure.Unauthorized("invalid authorization header format")
			scope.TraceError(err)

			response.WithError(writer, err)

			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			message := "token validation failed"

			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "token has expired"
			case errors.Is(err, jwt.ErrInvalidToken):
				message = "invalid token"
			}

			err := failure.Unauthorized(message)
			scope.TraceError(err)

			response.WithError(writer, err)

			return
		}

		if claims.UserID == constant.Empty || claims.HotelID == constant.Empty {
			log.Error().Msg("token claims missing user or hotel identity")

			response.WithError(writer, failure.Unauthorized("invalid token claims"))

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyHotelID, claims.HotelID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.TokenID)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RequireRole gates a route subtree to the named roles. Must run after
// Authenticate.
func (m *authImpl) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			userRole, _ := request.Context().Value(constant.ContextKeyUserRole).(string)

			if !slices.Contains(roles, userRole) {
				response.WithError(writer, failure.ForbiddenError)

				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
