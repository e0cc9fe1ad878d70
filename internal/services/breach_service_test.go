package services

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha1Suffix(password string) string {
	sum := sha1.Sum([]byte(password))
	return strings.ToUpper(fmt.Sprintf("%x", sum))[5:]
}

func TestHIBPChecker(t *testing.T) {
	t.Run("breached password found in range", func(t *testing.T) {
		password := "password123"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasPrefix(r.URL.Path, "/range/"))
			fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n")
			fmt.Fprintf(w, "%s:12345\r\n", sha1Suffix(password))
		}))
		defer server.Close()

		checker := NewHIBPCheckerWithBaseURL(server.URL, discardLogger())
		breached, err := checker.IsBreached(context.Background(), password)

		require.NoError(t, err)
		assert.True(t, breached)
	})

	t.Run("clean password absent from range", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n")
		}))
		defer server.Close()

		checker := NewHIBPCheckerWithBaseURL(server.URL, discardLogger())
		breached, err := checker.IsBreached(context.Background(), "UniquePass1!")

		require.NoError(t, err)
		assert.False(t, breached)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		checker := NewHIBPCheckerWithBaseURL(server.URL, discardLogger())
		_, err := checker.IsBreached(context.Background(), "whatever")

		assert.Error(t, err)
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		checker := NewHIBPCheckerWithBaseURL("http://127.0.0.1:1", discardLogger())
		_, err := checker.IsBreached(context.Background(), "whatever")

		assert.Error(t, err)
	})
}
