// Package security builds client TLS settings for secure upstream feeds.
//
//	cfg := security.TLSConfig{CAFile: "/etc/relay/feed-ca.pem"}
//	tlsConfig, err := cfg.Build() // nil when nothing is configured
package security
