package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Lookup(ctx context.Context, isbn string) (Metadata, error) {
	args := m.Called(ctx, isbn)
	return args.Get(0).(Metadata), args.Error(1)
}

func TestMetadata_WithDefaults(t *testing.T) {
	got := Metadata{Authors: "Mark Twain"}.WithDefaults()

	assert.Equal(t, "Mark Twain", got.Authors)
	assert.Equal(t, Missing, got.Publisher)
	assert.Equal(t, Missing, got.PublishedDate)
}

func TestLookupFunc(t *testing.T) {
	f := LookupFunc(func(_ context.Context, isbn string) (Metadata, error) {
		return Metadata{Authors: isbn}, nil
	})

	m, err := f.Lookup(context.Background(), "123")

	assert.NoError(t, err)
	assert.Equal(t, "123", m.Authors)
}
