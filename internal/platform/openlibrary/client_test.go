package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/metadata"
	"bookcatalog/internal/platform/fetch"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(fetch.NewGetter("test", 1000, 0, fetch.WithBackoff(time.Millisecond)), srv.URL)
}

func TestClient_Lookup(t *testing.T) {
	t.Run("maps details", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/books", r.URL.Path)
			assert.Equal(t, "ISBN:9780520343641", r.URL.Query().Get("bibkeys"))
			_, _ = w.Write([]byte(`{"ISBN:9780520343641":{
				"title":"Adventures of Huckleberry Finn",
				"publishers":[{"name":"University of California Press"}],
				"publish_date":"2003",
				"authors":[{"name":"Mark Twain"},{"name":"Victor Fischer"}]}}`))
		})

		m, err := c.Lookup(context.Background(), "9780520343641")

		require.NoError(t, err)
		assert.Equal(t, metadata.Metadata{
			Authors:       "Mark Twain and Victor Fischer",
			Publisher:     "University of California Press",
			PublishedDate: "2003",
		}, m)
	})

	t.Run("partial record", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ISBN:1":{"title":"x","authors":[{"name":"Anon"}]}}`))
		})

		m, err := c.Lookup(context.Background(), "1")

		require.NoError(t, err)
		assert.Equal(t, "Anon", m.Authors)
		assert.Equal(t, metadata.Missing, m.Publisher)
		assert.Equal(t, metadata.Missing, m.PublishedDate)
	})

	t.Run("unknown isbn", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := c.Lookup(context.Background(), "0000001111111")

		assert.ErrorIs(t, err, metadata.ErrNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.Lookup(context.Background(), "1")

		require.Error(t, err)
		assert.NotErrorIs(t, err, metadata.ErrNotFound)
	})
}
