// Package service runs an HTTP service whose requests are access-logged and
// shuts it down in an order that lets the request log drain last.
//
// Example usage:
//
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc := service.NewHTTPService(cfg.Service.Name, ":8080", b.Wrap(mux),
//	    service.WithLogger(b.Logger),
//	)
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	service.WaitForShutdown(ctx, b.Logger, b.Cleanup, svc)
package service

import "context"

// Service is a long-running server with a graceful stop.
type Service interface {
	// Start returns once the service accepts connections.
	Start(ctx context.Context) error

	// Stop waits for in-flight requests until the context deadline.
	Stop(ctx context.Context) error

	Name() string

	// Check reports nil while the service is running.
	Check(ctx context.Context) error
}
