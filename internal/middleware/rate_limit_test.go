package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	doRequest := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("allows up to the limit then rejects", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, doRequest("10.1.0.1"))
		}
		assert.Equal(t, http.StatusTooManyRequests, doRequest("10.1.0.1"))
	})

	t.Run("limits are per ip", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			doRequest("10.1.0.2")
		}
		assert.Equal(t, http.StatusTooManyRequests, doRequest("10.1.0.2"))
		assert.Equal(t, http.StatusOK, doRequest("10.1.0.3"))
	})
}
