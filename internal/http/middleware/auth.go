package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/http/response"
	"github.com/klhlearn/peerlearn-backend/internal/platform/ctxutil"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// RequireAuth verifies the Bearer token and stashes the caller's user
// id on the request context. Tokens are HS256 with the subject claim
// holding the user uuid.
func RequireAuth(baseLog *logger.Logger, secret string) gin.HandlerFunc {
	log := baseLog.With("middleware", "RequireAuth")

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.RespondError(c, http.StatusUnauthorized, "missing_token", errors.New("authorization header missing or malformed"))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Warn("Token verification failed", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "invalid_token", errors.New("token is invalid or expired"))
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			response.RespondError(c, http.StatusUnauthorized, "invalid_token", errors.New("token has no subject"))
			return
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			response.RespondError(c, http.StatusUnauthorized, "invalid_token", errors.New("token subject is not a user id"))
			return
		}

		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
