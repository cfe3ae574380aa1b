package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"campusevents/internal/config"
	"campusevents/internal/handler"
	"campusevents/internal/httpmiddleware"
)

func TestNewLimiterMemorySkipsRedis(t *testing.T) {
	health := map[string]handler.HealthCheck{}
	l, closeFn := newLimiter(config.App{RateLimitBackend: "memory", RateLimitPerMin: 10}, health)
	defer closeFn()

	assert.IsType(t, &httpmiddleware.SimpleTokenBucket{}, l)
	assert.NotContains(t, health, "redis")
}

func TestNewLimiterRedisRegistersHealth(t *testing.T) {
	health := map[string]handler.HealthCheck{}
	l, closeFn := newLimiter(config.App{RateLimitBackend: "redis", RedisAddr: "127.0.0.1:6399", RateLimitPerMin: 10}, health)
	defer closeFn()

	assert.IsType(t, &httpmiddleware.RedisWindow{}, l)
	assert.Contains(t, health, "redis")
}
