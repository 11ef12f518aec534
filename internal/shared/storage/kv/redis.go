// Package kv opens the Redis connection used by the token budget store.
package kv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options derives client options from a redis:// or rediss:// URL.
// A non-empty password overrides the one embedded in the URL.
func Options(rawURL, password string) (*redis.Options, error) {
	if rawURL == "" {
		return nil, errors.New("redis: REDIS_URL not configured")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return nil, fmt.Errorf("redis: unsupported scheme %q", parsed.Scheme)
	}

	useTLS := parsed.Scheme == "rediss"
	addr := parsed.Host
	if parsed.Port() == "" {
		addr = parsed.Host + ":6379"
	}

	if password == "" && parsed.User != nil {
		password, _ = parsed.User.Password()
	}

	opts := &redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// Open connects and pings the server.
func Open(ctx context.Context, rawURL, password string) (*redis.Client, error) {
	opts, err := Options(rawURL, password)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connection failed: %w", err)
	}
	return client, nil
}
