package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := key("https://data.ontario.ca/a.csv")
	b := key("https://data.ontario.ca/b.csv")

	assert.True(t, strings.HasPrefix(a, keyPrefix))
	assert.Len(t, a, len(keyPrefix)+64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, key("https://data.ontario.ca/a.csv"))
}

func TestNewBodyStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewBodyStore(ctx, "127.0.0.1:1", "", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis 127.0.0.1:1")
}
