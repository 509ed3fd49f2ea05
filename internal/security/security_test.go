package security_test

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/security"
)

func echo(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(data)
	})
}

func TestBodyLimitPassesSmallPayload(t *testing.T) {
	handler := security.BodyLimit{Max: 16}.Middleware(echo(t))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/discount", strings.NewReader(`[{"id":1}]`)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `[{"id":1}]`, rr.Body.String())
}

func TestBodyLimitRejectsOversizedPayload(t *testing.T) {
	handler := security.BodyLimit{Max: 4}.Middleware(echo(t))
	req := httptest.NewRequest(http.MethodPost, "/discount", strings.NewReader("excessive"))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "PAYLOAD_TOO_LARGE", body.Error.Code)
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	handler := security.BodyLimit{Max: 4}.Middleware(echo(t))
	req := httptest.NewRequest(http.MethodPost, "/discount", strings.NewReader("ok"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHeaders(t *testing.T) {
	handler := security.Headers{EnableHSTS: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://promo.example.com/", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Equal(t, "max-age=31536000", rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://promo.example.com/", nil))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}
