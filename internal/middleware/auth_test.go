package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Conceptual-Machines/thumbforge-api/internal/config"
	"github.com/Conceptual-Machines/thumbforge-api/internal/models"
	"github.com/Conceptual-Machines/thumbforge-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type failingProfiles struct{}

func (failingProfiles) GetOrCreateProfile(context.Context, models.Identity) (*models.Profile, error) {
	return nil, errors.New("db down")
}

func (failingProfiles) IsUsernameTaken(context.Context, string) bool { return false }

func signToken(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() *Claims {
	return &Claims{
		Email:        "creator@example.com",
		UserMetadata: map[string]any{"user_name": "creator"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		profile, _ := GetCurrentProfile(c)
		userID, _ := GetCurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "username": profile.Username, "role": profile.Role})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTAuth(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret, JWTAudience: "authenticated"}

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongAudience := validClaims()
	wrongAudience.Audience = jwt.ClaimStrings{"other"}

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "valid bearer", header: "Bearer " + signToken(t, validClaims(), jwt.SigningMethodHS256, []byte(testSecret)), wantStatus: http.StatusOK},
		{name: "valid cookie", cookie: signToken(t, validClaims(), jwt.SigningMethodHS256, []byte(testSecret)), wantStatus: http.StatusOK},
		{name: "wrong secret", header: "Bearer " + signToken(t, validClaims(), jwt.SigningMethodHS256, []byte("nope")), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, expired, jwt.SigningMethodHS256, []byte(testSecret)), wantStatus: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + signToken(t, wrongAudience, jwt.SigningMethodHS256, []byte(testSecret)), wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + signToken(t, noSubject, jwt.SigningMethodHS256, []byte(testSecret)), wantStatus: http.StatusUnauthorized},
		{name: "malformed header", header: "Token abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(JWTAuth(services.NewGuestStore(), cfg))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"user_id":"user-123"`)
				assert.Contains(t, w.Body.String(), `"username":"creator"`)
			}
		})
	}
}

func TestParseToken_RequiresSecret(t *testing.T) {
	token := signToken(t, validClaims(), jwt.SigningMethodHS256, []byte(testSecret))
	_, err := ParseToken(token, "", "")
	assert.Error(t, err)
}

func TestClaimsIdentity(t *testing.T) {
	claims := validClaims()
	claims.AppMetadata = map[string]any{"role": models.RoleAdmin}
	identity := claims.Identity()
	assert.Equal(t, "user-123", identity.ID)
	assert.Equal(t, models.RoleAdmin, identity.Role)
	assert.Equal(t, "creator", identity.MetadataString("user_name"))

	assert.Equal(t, models.RoleUser, validClaims().Identity().Role)
}

func TestGatewayAuth(t *testing.T) {
	router := newRouter(GatewayAuth(services.NewGuestStore()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-User-ID", "gw-1")
	req.Header.Set("X-User-Name", "gateway_user")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"gateway_user"`)
}

func TestGuestAuth(t *testing.T) {
	router := newRouter(GuestAuth(services.NewGuestStore()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"guest_creator"`)
}

func TestProfileStoreFailure(t *testing.T) {
	router := newRouter(GuestAuth(failingProfiles{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminRequired(t *testing.T) {
	store := services.NewGuestStore()
	_, err := store.GetOrCreateProfile(context.Background(), models.Identity{ID: "boss", Role: models.RoleAdmin})
	require.NoError(t, err)

	router := newRouter(GatewayAuth(store), AdminRequired())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-User-ID", "boss")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-User-ID", "pleb")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	newRouter(AdminRequired()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForMode(t *testing.T) {
	store := services.NewGuestStore()
	for _, mode := range []string{"none", "jwt", "gateway"} {
		assert.NotNil(t, ForMode(&config.Config{AuthMode: mode}, store), mode)
	}
}
