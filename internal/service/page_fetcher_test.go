package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPageFetcher_Fetch_HTML(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "ContractsOnly")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><style>.x{color:red}</style><script>var contract = 1;</script></head>
<body><h1>Go Contractor</h1><p>Job Type: Contract</p><p>$90/hr</p></body></html>`))
	}))
	defer srv.Close()

	text, err := NewHTTPPageFetcher(nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "Go Contractor")
	assert.Contains(t, text, "Job Type: Contract")
	assert.NotContains(t, text, "var contract")
	assert.NotContains(t, text, "color:red")
	assert.Equal(t, "Contract", strings.TrimSpace(ExtractJobType(text)))
}

func TestHTTPPageFetcher_Fetch_PlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("1099 contractor, 6 month contract"))
	}))
	defer srv.Close()

	text, err := NewHTTPPageFetcher(nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "1099 contractor, 6 month contract", text)
}

func TestHTTPPageFetcher_Fetch_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTTPPageFetcher(nil).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrPageFetch)
	assert.Contains(t, err.Error(), "404")
}
