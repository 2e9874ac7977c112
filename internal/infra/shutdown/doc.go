// Package shutdown turns SIGINT and SIGTERM into context cancellation and
// runs named cleanup hooks in reverse registration order.
//
//	h := shutdown.NewHandler(5*time.Second, shutdown.WithLogger(log))
//	ctx, stop := h.Notify(context.Background())
//	defer stop()
//	h.OnShutdown("metrics server", srv.Shutdown)
//	run(ctx)
//	err := h.Shutdown()
package shutdown
