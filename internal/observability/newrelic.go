package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/akave-ai/returnall/internal/config"
)

// NewApplication starts a New Relic agent. It returns nil, nil when no
// license key is configured.
func NewApplication(cfg *config.ObservabilityConfig) (*newrelic.Application, error) {
	if !cfg.NewRelicEnabled() {
		return nil, nil
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(fmt.Sprintf("%s-%s", cfg.ServiceName, cfg.Environment)),
		newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(cfg.NewRelic.AppLogForwardingEnabled),
		newrelic.ConfigDistributedTracerEnabled(cfg.NewRelic.DistributedTracingEnabled),
	)
	if err != nil {
		return nil, fmt.Errorf("new relic application: %w", err)
	}
	return app, nil
}

// Shutdown flushes pending agent data. Safe on a nil application.
func Shutdown(app *newrelic.Application, timeout time.Duration) {
	if app == nil {
		return
	}
	app.Shutdown(timeout)
}

// Middleware runs each request inside a transaction named "METHOD route".
// With a nil application it passes requests through untouched.
func Middleware(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if app == nil {
			return next
		}
		return func(c echo.Context) error {
			req := c.Request()
			txn := app.StartTransaction(req.Method + " " + c.Path())
			defer txn.End()

			txn.SetWebRequestHTTP(req)
			c.Response().Writer = txn.SetWebResponse(c.Response().Writer)
			c.SetRequest(req.WithContext(newrelic.NewContext(req.Context(), txn)))

			err := next(c)
			if err != nil {
				txn.NoticeError(err)
			}
			return err
		}
	}
}

// Annotate adds attributes to the transaction carried by ctx, if any.
func Annotate(ctx context.Context, attrs map[string]any) {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return
	}
	for k, v := range attrs {
		txn.AddAttribute(k, v)
	}
}
