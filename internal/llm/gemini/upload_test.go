package gemini_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-ingest/internal/llm/gemini"
)

func newTestClient(t *testing.T, baseURL string) *gemini.Client {
	t.Helper()

	c, err := gemini.NewClient(gemini.Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gemini-2.5-flash",
	}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return c
}

func TestUploadFile_Handshake(t *testing.T) {
	t.Parallel()

	payload := []byte("%PDF-1.7 fake invoice bytes")

	var startSeen, finalizeSeen bool
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		startSeen = true
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "resumable", r.Header.Get("X-Goog-Upload-Protocol"))
		assert.Equal(t, "start", r.Header.Get("X-Goog-Upload-Command"))
		assert.Equal(t, "27", r.Header.Get("X-Goog-Upload-Header-Content-Length"))
		assert.Equal(t, "application/pdf", r.Header.Get("X-Goog-Upload-Header-Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"file":{"display_name":"inv-001.pdf"}}`, string(body))

		w.Header().Set("X-Goog-Upload-URL", srv.URL+"/session/abc")
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/session/abc", func(w http.ResponseWriter, r *http.Request) {
		finalizeSeen = true
		assert.Equal(t, "0", r.Header.Get("X-Goog-Upload-Offset"))
		assert.Equal(t, "upload, finalize", r.Header.Get("X-Goog-Upload-Command"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)

		_, _ = w.Write([]byte(`{"file":{"uri":"files/inv-001"}}`))
	})

	c := newTestClient(t, srv.URL)

	uri, err := c.UploadFile(context.Background(), payload, "inv-001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "files/inv-001", uri)
	assert.True(t, startSeen)
	assert.True(t, finalizeSeen)
}

func TestUploadFile_MissingUploadURLHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no X-Goog-Upload-URL header
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	_, err := c.UploadFile(context.Background(), []byte("data"), "a.pdf")
	require.ErrorIs(t, err, gemini.ErrNoUploadURL)
}

func TestUploadFile_StartNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)

	_, err := c.UploadFile(context.Background(), []byte("data"), "a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestUploadFile_FinalizeMissingURI(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Goog-Upload-URL", srv.URL+"/session/xyz")
	})
	mux.HandleFunc("/session/xyz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"file":{}}`))
	})

	c := newTestClient(t, srv.URL)

	_, err := c.UploadFile(context.Background(), []byte("data"), "a.pdf")
	require.ErrorIs(t, err, gemini.ErrNoFileURI)
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := gemini.NewClient(gemini.Config{}, nil, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, gemini.ErrMissingAPIKey)
}
