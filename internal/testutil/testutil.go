package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookcatalog/internal/book"
	"bookcatalog/internal/metadata"
)

// TestBook is a fully enriched book for testing
var TestBook = book.Book{
	ID:            "test-book-id-789",
	ISBN:          "9780520343641",
	Title:         "Huck Finn",
	Genre:         "Fiction",
	Authors:       "Mark Twain",
	Publisher:     "Univ of California Press",
	PublishedDate: "2003",
}

// NewRequest creates a new HTTP request for testing. A non-nil body is
// marshalled to JSON and sent as application/json.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	bodyBytes, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRawRequest sends raw as an application/json body, verbatim.
func NewRawRequest(method, path, raw string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// Serve runs r through h and returns the recorded response.
func Serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// DecodeBody unmarshals the recorded body, failing the test on error.
func DecodeBody[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return v
}

// StaticLookup answers from a fixed ISBN table and reports every other
// ISBN as not found.
func StaticLookup(known map[string]metadata.Metadata) metadata.Lookup {
	return metadata.LookupFunc(func(_ context.Context, isbn string) (metadata.Metadata, error) {
		m, ok := known[isbn]
		if !ok {
			return metadata.Metadata{}, metadata.ErrNotFound
		}
		return m, nil
	})
}
