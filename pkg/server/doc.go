// Package server provides the HTTP server of the relay.
//
// It mounts the relay's handlers on a net/http mux, wraps them in the
// middleware chain and manages the server lifecycle.
//
// # Routes
//
//	POST   /v1/chat/completions        chat completions through the orchestrator
//	DELETE /v1/cache/{fingerprint}     drop one cached response from every tier
//	GET    /health                     liveness
//	GET    /ready                      readiness (503 when no provider is eligible)
//	GET    /health/providers           breaker state and routing stats per provider
//	GET    /version                    build information
//	GET    /metrics                    Prometheus exposition (path is configurable)
//
// A route whose handler is nil is not registered. The mux answers 405 for a
// known path with the wrong method.
//
// # Basic Usage
//
//	srv := server.NewServer(cfg.Server, server.Routes{
//	    Chat:      handlers.NewChatHandler(orch, cfg.Server.MaxBodyBytes),
//	    Cache:     handlers.NewCacheHandler(cacheManager),
//	    Liveness:  checker.LivenessHandler(),
//	    Readiness: checker.ReadinessHandler(),
//	}, logger)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Start returns when its context is done or Stop is called. Shutdown stops
// accepting connections and waits up to server.shutdown_timeout for
// in-flight requests. Request contexts are detached from the Start context,
// so a running completion is not canceled by the shutdown signal itself.
package server
