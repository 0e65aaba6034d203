package client

import (
	"time"

	"github.com/matheus3301/walink/internal/connection"
	"github.com/matheus3301/walink/internal/lidcache"
)

const DefaultSessionPath = "./sessions"

// Options configures one client instance.
type Options struct {
	// InstanceID scopes credential storage and the identity cache. Required.
	InstanceID  string
	SessionPath string
	Debug       bool
	// AutoReconnect is off in the zero value; DefaultOptions turns it on.
	AutoReconnect bool
	// MaxReconnectAttempts caps scheduled retries; 0 means unbounded.
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	IdentityCacheSize    int
}

// DefaultOptions returns the documented defaults for id.
func DefaultOptions(id string) Options {
	return Options{
		InstanceID:        id,
		SessionPath:       DefaultSessionPath,
		AutoReconnect:     true,
		ReconnectDelay:    connection.DefaultDelay,
		IdentityCacheSize: lidcache.DefaultCapacity,
	}
}

func (o Options) withDefaults() Options {
	if o.SessionPath == "" {
		o.SessionPath = DefaultSessionPath
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = connection.DefaultDelay
	}
	if o.IdentityCacheSize <= 0 {
		o.IdentityCacheSize = lidcache.DefaultCapacity
	}
	return o
}

func (o Options) policy() connection.Policy {
	return connection.Policy{
		AutoReconnect: o.AutoReconnect,
		MaxAttempts:   o.MaxReconnectAttempts,
		Delay:         o.ReconnectDelay,
	}
}
