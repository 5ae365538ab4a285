// Command relay connects to one upstream event feed and fans every message
// out to the clients subscribed on the events endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/eventrelay/bootstrap"
	"github.com/kbukum/eventrelay/component"
	"github.com/kbukum/eventrelay/config"
	"github.com/kbukum/eventrelay/observability"
	"github.com/kbukum/eventrelay/resilience"
	"github.com/kbukum/eventrelay/server"
	"github.com/kbukum/eventrelay/sse"
	"github.com/kbukum/eventrelay/upstream"
)

const serviceName = "relay"

func main() {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}

	if err := wire(app); err != nil {
		app.Logger.Fatal("Wiring failed", map[string]interface{}{"error": err.Error()})
	}

	if err := app.Run(context.Background()); err != nil {
		app.Logger.Fatal("Relay exited with error", map[string]interface{}{"error": err.Error()})
	}
}

// relayStats is the live section of /info.
type relayStats struct {
	Subscribers int            `json:"subscribers"`
	Upstream    upstream.Stats `json:"upstream"`
}

// wire builds the components and registers them in start order:
// telemetry, http-server, sse, upstream. Shutdown runs in reverse, so the
// feed stops first and subscriber streams close before the server drains.
func wire(app *bootstrap.App[*Config]) error {
	cfg := app.Cfg

	metrics, err := observability.NewRelayMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return fmt.Errorf("relay metrics: %w", err)
	}
	telemetry := observability.NewComponent(&cfg.Observability)

	hub := sse.NewComponent(&cfg.SSE, cfg.Server.EventsPath, metrics)

	dialer, err := upstream.NewDialer(&cfg.Upstream)
	if err != nil {
		return err
	}
	session := upstream.NewSession(dialer, hub.Engine(),
		resilience.NewReconnectPolicy(cfg.Upstream.Reconnect),
		upstream.WithSessionMetrics(metrics),
	)
	feed := upstream.NewComponent(session, cfg.Upstream)

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware()
	srv.RegisterEvents(hub.Handler().Gin())
	srv.RegisterDefaultEndpoints(server.Endpoints{
		ServiceName: app.Name,
		Version:     app.Version,
		Health:      app.Components.HealthAll,
		Ready: func(context.Context) error {
			if st := session.State(); st != upstream.StateConnected {
				return fmt.Errorf("upstream %s", st)
			}
			return nil
		},
		Stats: func() any {
			return relayStats{Subscribers: hub.Registry().Count(), Upstream: session.Stats()}
		},
	})

	for _, c := range []component.Component{telemetry, server.NewComponent(srv), hub, feed} {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	return nil
}
