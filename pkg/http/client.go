// Package http builds tuned net/http clients for talking to the bank.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// ClientConfig shapes the transport under a gateway client. The knobs
// that matter here are pool sizing and the header timeout; everything
// else follows from them.
type ClientConfig struct {
	// PoolSize bounds idle connections kept to the gateway host.
	PoolSize int

	// MaxConcurrent bounds in-flight connections to the gateway host,
	// idle included. Zero means unlimited.
	MaxConcurrent int

	IdleTimeout time.Duration
	KeepAlive   time.Duration

	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// DisableCompression skips gzip negotiation. The gateway exchanges
	// small XML documents, where compression costs more than it saves.
	DisableCompression bool

	MinTLSVersion      uint16
	InsecureSkipVerify bool
}

// GatewayClientConfig is the posture for the P2C gateway: one host,
// moderate concurrency, and patience for slow debit confirmations.
func GatewayClientConfig() *ClientConfig {
	return &ClientConfig{
		PoolSize:              50,
		MaxConcurrent:         100,
		IdleTimeout:           90 * time.Second,
		KeepAlive:             60 * time.Second,
		DialTimeout:           10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableCompression:    true,
		MinTLSVersion:         tls.VersionTLS12,
	}
}

// NewHTTPClient builds an *http.Client over a pooled HTTP/2-capable
// transport. The timeout caps the whole conversation including body read.
func NewHTTPClient(cfg *ClientConfig, timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.MaxConcurrent,
		IdleConnTimeout:     cfg.IdleTimeout,

		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,

		DisableCompression: cfg.DisableCompression,
		ForceAttemptHTTP2:  true,

		TLSClientConfig: &tls.Config{
			MinVersion:         cfg.MinTLSVersion,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
