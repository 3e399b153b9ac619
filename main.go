package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/config"
	gohttp "github.com/km-arc/go-inject/framework/http"
	"github.com/km-arc/go-inject/framework/inject"
)

// Counter is built once per request and numbered by construction order.
type Counter struct {
	N int64
}

// CounterServiceProvider binds the request-scoped "counter".
type CounterServiceProvider struct {
	inject.BaseProvider
	total atomic.Int64
}

func (p *CounterServiceProvider) Register(c *inject.Container) {
	c.Scoped("counter", func(context.Context, *inject.Container) (any, error) {
		return &Counter{N: p.total.Add(1)}, nil
	})
}

func main() {
	cfg := config.Load()
	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := application.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counters := &CounterServiceProvider{}
	if err := application.Register(ctx, counters); err != nil {
		logger.Fatal("register provider", zap.Error(err))
	}

	r, err := application.Router(ctx)
	if err != nil {
		logger.Fatal("boot", zap.Error(err))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		gohttp.NewResponse(w).Success(map[string]any{"status": "ok"})
	})

	// Both resolutions return the same Counter; the next request gets a new one.
	r.Get("/counter", func(w http.ResponseWriter, req *http.Request) {
		request := gohttp.NewRequest(req)
		res := gohttp.NewResponse(w)

		first, err := gohttp.Resolve[*Counter](request, "counter")
		if err != nil {
			res.Fail(err)
			return
		}
		second, err := gohttp.Resolve[*Counter](request, "counter")
		if err != nil {
			res.Fail(err)
			return
		}
		res.Success(map[string]any{
			"request_id": request.ID(),
			"first":      first.N,
			"second":     second.N,
			"same":       first == second,
			"total":      counters.total.Load(),
		})
	})

	if err := application.Run(ctx); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}
