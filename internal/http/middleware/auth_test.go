package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/platform/ctxutil"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	var seen uuid.UUID
	router := gin.New()
	router.GET("/protected", RequireAuth(log, testSecret), func(c *gin.Context) {
		rd, ok := ctxutil.GetRequestData(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		seen = rd.UserID
		c.Status(http.StatusNoContent)
	})
	return router, &seen
}

func signToken(t *testing.T, secret string, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doAuth(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	router, seen := newAuthRouter(t)
	userID := uuid.New()
	token := signToken(t, testSecret, userID.String(), time.Now().Add(time.Hour))

	w := doAuth(router, "Bearer "+token)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (body %s)", w.Code, w.Body.String())
	}
	if *seen != userID {
		t.Fatalf("user id = %s, want %s", *seen, userID)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	router, _ := newAuthRouter(t)

	cases := map[string]string{
		"missing_header": "",
		"not_bearer":     "Basic abc",
		"garbage":        "Bearer not.a.jwt",
		"wrong_secret":   "Bearer " + signToken(t, "other-secret", uuid.NewString(), time.Now().Add(time.Hour)),
		"expired":        "Bearer " + signToken(t, testSecret, uuid.NewString(), time.Now().Add(-time.Hour)),
		"bad_subject":    "Bearer " + signToken(t, testSecret, "not-a-uuid", time.Now().Add(time.Hour)),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w := doAuth(router, header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}
