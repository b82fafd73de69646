package authsdk

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/authclient/pkg/credstore"
	"github.com/aussiebroadwan/authclient/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// writeEnvelope writes a JSON envelope the way the API does.
func writeEnvelope(w http.ResponseWriter, status int, env any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": msg})
}

// makeToken builds an unsigned compact token carrying claims.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return "h." + base64.RawURLEncoding.EncodeToString(payload) + ".s"
}

func newTestServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) (*Client, *credstore.Store) {
	t.Helper()

	store := credstore.NewMemory()
	opts = append([]Option{WithLogger(slogx.Discard())}, opts...)
	return NewClient(srv.URL, store, opts...), store
}
