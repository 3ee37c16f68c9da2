// Copyright 2024 the bios-bmc-smm-error-logger Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pollloop

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openbmc/bios-bmc-smm-error-logger/pkg/log"
)

// ServeMetrics starts an HTTP server exposing /metrics on addr, against
// reg, on its own goroutine. It runs independently of the poll loop's
// tick cadence; callers typically cancel ctx on shutdown.
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("pollloop: metrics server exited: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
}
