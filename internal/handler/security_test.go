package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"

	"github.com/banglamart/ordercore/internal/domain/auth"
)

type mockAPIKeyRepo struct {
	info *auth.APIKeyInfo
	err  error
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, _ string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

func hashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRequireAPIKey(t *testing.T) {
	pepper := []byte("test-pepper")
	const key = "super-secret-admin-key"

	tests := []struct {
		name     string
		repo     *mockAPIKeyRepo
		header   string
		wantCode int
	}{
		{
			name:     "valid key passes",
			repo:     &mockAPIKeyRepo{info: &auth.APIKeyInfo{ID: "k1", KeyHash: hashKey(key, pepper)}},
			header:   key,
			wantCode: http.StatusOK,
		},
		{
			name:     "missing header",
			repo:     &mockAPIKeyRepo{},
			header:   "",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "unknown key",
			repo:     &mockAPIKeyRepo{err: errors.New("no rows")},
			header:   "wrong-key",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "stored hash does not match computed hash",
			repo:     &mockAPIKeyRepo{info: &auth.APIKeyInfo{ID: "k1", KeyHash: hashKey("different-key", pepper)}},
			header:   key,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "stored hash is not hex",
			repo:     &mockAPIKeyRepo{info: &auth.APIKeyInfo{ID: "k1", KeyHash: "zz-not-hex"}},
			header:   key,
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				reached = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			RequireAPIKey(tt.repo, pepper)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCode == http.StatusOK, reached)
		})
	}
}
