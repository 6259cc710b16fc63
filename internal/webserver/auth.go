package webserver

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughshop/internal/domain"
	"go.uber.org/zap"
)

const (
	tokenContextKey = "token"
	userContextKey  = "current_user"

	// TokenCookie cookie carrying the session token set by the auth service
	TokenCookie = "accessToken"
)

// Claims session token claims. Subject holds the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserFinder resolves the user behind a session
type UserFinder interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
}

// IssueToken signs an HS256 session token for user
func IssueToken(secret string, user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// jwtMiddleware verifies the session token from the Authorization header or
// the session cookie
func jwtMiddleware(secret string) echo.MiddlewareFunc {
	if secret == "" {
		// an empty HMAC key verifies tokens anyone can sign
		return func(echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return HandleError(c, domain.ErrUnauthorized)
			}
		}
	}
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    tokenContextKey,
		TokenLookup:   "header:Authorization:Bearer ,cookie:" + TokenCookie,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			zap.L().Debug("session rejected", zap.String("path", c.Path()), zap.Error(err))
			return HandleError(c, domain.ErrUnauthorized)
		},
	})
}

// requireAdmin loads the session user and rejects anyone without the admin role
func requireAdmin(users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return HandleError(c, domain.ErrUnauthorized)
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return HandleError(c, domain.ErrUnauthorized)
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return HandleError(c, domain.ErrUnauthorized)
			}
			user, err := users.FindUser(c.Request().Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				return HandleError(c, domain.ErrUnauthorized)
			}
			if err != nil {
				return HandleError(c, err)
			}
			// the stored role decides, not the one in the token
			if !user.IsAdmin() {
				return HandleError(c, domain.ErrForbidden)
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the admin resolved for this request, nil on public routes
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}
