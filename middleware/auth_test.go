package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(userID interface{}) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func TestAuthenticate(t *testing.T) {
	good := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(42))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims(42))
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "bearer header", header: "Bearer " + good, wantStatus: http.StatusOK},
		{name: "query token", query: good, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + good, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, err := GetUserIDFromContext(r.Context())
				require.NoError(t, err)
				gotID = id
				w.WriteHeader(http.StatusOK)
			})

			target := "/protected"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(testSecret)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, 42, gotID)
			} else {
				assert.Contains(t, rec.Body.String(), "error")
			}
		})
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		want    int
		wantErr bool
	}{
		{name: "no claims", ctx: context.Background(), wantErr: true},
		{name: "number", ctx: context.WithValue(context.Background(), userContextKey, jwt.MapClaims{"user_id": float64(7)}), want: 7},
		{name: "string", ctx: context.WithValue(context.Background(), userContextKey, jwt.MapClaims{"user_id": "9"}), want: 9},
		{name: "fraction", ctx: context.WithValue(context.Background(), userContextKey, jwt.MapClaims{"user_id": 1.5}), wantErr: true},
		{name: "zero", ctx: context.WithValue(context.Background(), userContextKey, jwt.MapClaims{"user_id": float64(0)}), wantErr: true},
		{name: "missing claim", ctx: context.WithValue(context.Background(), userContextKey, jwt.MapClaims{"role": "x"}), wantErr: true},
		{name: "helper", ctx: WithUserID(context.Background(), 11), want: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetUserIDFromContext(tt.ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
