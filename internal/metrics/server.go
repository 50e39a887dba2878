// Package metrics exposes a Prometheus registry over HTTP.
package metrics

import (
	"errors"
	"net"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/idilsaglam/todolocal/internal/logging"
)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves g at /metrics and 404s everything else.
func Handler(g prometheus.Gatherer) fasthttp.RequestHandler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/metrics" {
			ctx.Error("not found", fasthttp.StatusNotFound)
			return
		}
		h(ctx)
	}
}

type Server struct {
	srv    *fasthttp.Server
	logger *log.Logger
}

func NewServer(g prometheus.Gatherer, logger *log.Logger) *Server {
	return &Server{
		srv:    &fasthttp.Server{Handler: Handler(g), Name: "todolocal"},
		logger: logging.OrDiscard(logger).WithPrefix("metrics"),
	}
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("serving metrics", "addr", ln.Addr().String())
	go s.Serve(ln)
	return nil
}

// Serve blocks until ln is closed or Close is called.
func (s *Server) Serve(ln net.Listener) {
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Error("metrics server stopped", "err", err)
	}
}

func (s *Server) Close() error { return s.srv.Shutdown() }
