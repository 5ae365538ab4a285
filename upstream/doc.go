// Package upstream maintains the relay's single connection to its event
// source and forwards every message to the broadcaster.
//
// The transport is chosen from the URL scheme: ws:// and wss:// use a
// WebSocket, http:// and https:// read a text/event-stream.
//
//	dialer, err := upstream.NewDialer(&cfg.Upstream)
//	policy := resilience.NewReconnectPolicy(cfg.Upstream.Reconnect)
//	session := upstream.NewSession(dialer, engine, policy)
//	err = session.Run(ctx)
//
// The session moves through Disconnected, Connecting, Connected and Failed.
// After a failure the policy picks the delay before the next attempt; when
// it gives up the session ends in Stopped.
package upstream
