// Package sse fans events out to Server-Sent Events subscribers.
//
// A Registry holds the live subscriber handles, an Engine publishes each
// payload to a snapshot of them, and a Handler turns one HTTP request into
// a registered handle drained onto a text/event-stream response.
//
//	comp := sse.NewComponent(&cfg.SSE, "/events", metrics)
//	router.GET("/events", comp.Handler().Gin())
//	res := comp.Engine().Publish(ctx, payload)
//
// A subscriber whose queue stays full past the send timeout, whose
// connection closes, or whose write fails is unregistered without
// affecting the rest.
package sse
