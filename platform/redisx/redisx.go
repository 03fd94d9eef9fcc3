// Package redisx builds go-redis clients from connection URLs.
// This is part of the platform layer and contains no business logic.
package redisx

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ParseURL parses a redis:// or rediss:// URL. tlsInsecure disables
// certificate verification for managed instances with self-signed certs.
func ParseURL(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewClient returns a client for redisURL. It does not dial.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := ParseURL(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
