package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("url is required", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{})
		assert.ErrorContains(t, err, "redis url is required")
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "http://localhost:6379"})
		assert.ErrorContains(t, err, "parse redis URL")
	})
}
