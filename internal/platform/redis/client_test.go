package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_EmptyURLDisablesClient(t *testing.T) {
	c, err := New(context.Background(), "")

	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), "http://not-redis")

	assert.ErrorContains(t, err, "parse redis URL")
}
