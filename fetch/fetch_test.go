package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Quantum Advances</title><style>body { color: red; }</style></head>
<body>
  <script>trackVisitor();</script>
  <h1>Quantum Advances</h1>
  <p>Error   rates    dropped sharply in 2025.</p>


  <p>Industry adoption remains early.</p>
  <div onclick="evil()">Interactive   text</div>
</body>
</html>`

func TestHTTPLoaderLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts title and readable text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(samplePage))
		}))
		defer srv.Close()

		page, err := NewHTTPLoader().Load(ctx, srv.URL)
		require.NoError(t, err)

		assert.Equal(t, "Quantum Advances", page.Title)
		assert.Contains(t, page.Text, "Error rates dropped sharply in 2025.")
		assert.Contains(t, page.Text, "Industry adoption remains early.")
		assert.NotContains(t, page.Text, "trackVisitor")
		assert.NotContains(t, page.Text, "color: red")
		assert.NotContains(t, page.Text, "\n\n\n", "blank-line runs collapsed")
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.Write([]byte("<html><body><p>hi there</p></body></html>"))
		}))
		defer srv.Close()

		_, err := NewHTTPLoader(WithUserAgent("test-agent/1.0")).Load(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "test-agent/1.0", gotUA)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := NewHTTPLoader().Load(ctx, srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("empty content is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body><script>only()</script></body></html>"))
		}))
		defer srv.Close()

		_, err := NewHTTPLoader().Load(ctx, srv.URL)
		assert.Error(t, err)
	})

	t.Run("oversized body truncated not failed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><body><p>"))
			w.Write([]byte(strings.Repeat("filler text ", 200000)))
			w.Write([]byte("</p></body></html>"))
		}))
		defer srv.Close()

		page, err := NewHTTPLoader().Load(ctx, srv.URL)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(page.Text), maxBodyBytes)
		assert.Contains(t, page.Text, "filler text")
	})
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", normalizeWhitespace("a \t b\n  c  "))
	assert.Equal(t, "a\n\nb", normalizeWhitespace("a\n\n\n\n\nb"))
	assert.Equal(t, "", normalizeWhitespace("  \n \t \n "))
}
