package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestGetter_GetJSON(t *testing.T) {
	t.Run("decodes body and sends user agent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bookcatalog-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(`{"name":"huck"}`))
		}))
		defer srv.Close()

		var got payload
		err := NewGetter("bookcatalog-test", 100, 0).GetJSON(context.Background(), srv.URL, &got)

		require.NoError(t, err)
		assert.Equal(t, "huck", got.Name)
	})

	t.Run("retries server errors", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"name":"ok"}`))
		}))
		defer srv.Close()

		var got payload
		g := NewGetter("ua", 1000, 2, WithBackoff(time.Millisecond))
		err := g.GetJSON(context.Background(), srv.URL, &got)

		require.NoError(t, err)
		assert.Equal(t, "ok", got.Name)
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		g := NewGetter("ua", 1000, 3, WithBackoff(time.Millisecond))
		err := g.GetJSON(context.Background(), srv.URL, &payload{})

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.Code)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		g := NewGetter("ua", 1000, 1, WithBackoff(time.Millisecond))
		err := g.GetJSON(context.Background(), srv.URL, &payload{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 1 retries")
	})
}
