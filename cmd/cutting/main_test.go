package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cutting-tracker/internal/config"
)

func TestCheckTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		backend string
		ttl     time.Duration
		wantErr string
	}{
		{name: "defaults", timeout: 15 * time.Second, backend: "redis", ttl: 30 * time.Second},
		{name: "write timeout below completion deadline", timeout: 4 * time.Second, backend: "local", ttl: 30 * time.Second, wantErr: "completion deadline"},
		{name: "write timeout equal to completion deadline", timeout: 10 * time.Second, backend: "local", ttl: 30 * time.Second, wantErr: "completion deadline"},
		{name: "redis lease shorter than requests", timeout: 15 * time.Second, backend: "redis", ttl: 10 * time.Second, wantErr: "lock.ttl"},
		{name: "local lock ignores ttl", timeout: 15 * time.Second, backend: "local", ttl: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.HTTPServer.Timeout = tt.timeout
			cfg.Lock.Backend = tt.backend
			cfg.Lock.TTL = tt.ttl

			err := checkTimeouts(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
