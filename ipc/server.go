package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/lixenwraith/applog"
	"github.com/lixenwraith/applog/compat"
)

const (
	ipcPrefix       = "/ipc/"
	metricsPath     = "/metrics"
	requestIDHeader = "X-Request-Id"

	defaultShutdownTimeout = 5 * time.Second
)

// Response is the JSON envelope of every /ipc reply
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Server exposes a Router over local HTTP: POST /ipc/<channel> with a JSON body.
// With WithMetrics it also serves GET /metrics.
type Server struct {
	router  *Router
	logger  *applog.Logger
	srv     *fasthttp.Server
	metrics fasthttp.RequestHandler

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	shutdownTimeout time.Duration
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithMetrics registers request metrics on reg and serves reg at /metrics
func WithMetrics(reg *prometheus.Registry) ServerOption {
	return func(s *Server) {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ipc_requests_total",
			Help: "IPC calls by channel and HTTP status.",
		}, []string{"channel", "code"})
		s.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ipc_request_duration_seconds",
			Help:    "IPC call latency by channel.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"})
		reg.MustRegister(s.requests, s.latency)

		s.metrics = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight requests
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// NewServer creates a server; logger also receives fasthttp's own messages
func NewServer(router *Router, logger *applog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		router:          router,
		logger:          logger,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = &fasthttp.Server{
		Handler:               s.handle,
		Name:                  "applog-ipc",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		NoDefaultServerHeader: true,
		Logger:                compat.NewFastHTTPAdapter(logger),
	}
	return s
}

// ListenAndServe serves on addr until Close
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("ipc server listening", addr)
	return s.srv.ListenAndServe(addr)
}

// Serve serves on ln until Close
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("ipc server listening", ln.Addr().String())
	return s.srv.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Close shuts down within the configured timeout; it fits a lifecycle hook
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		s.logger.Error("ipc server shutdown failed", err)
		return err
	}
	s.logger.Info("ipc server stopped")
	return nil
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	switch {
	case path == metricsPath && s.metrics != nil:
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		s.metrics(ctx)
	case strings.HasPrefix(path, ipcPrefix):
		s.handleIPC(ctx, strings.TrimPrefix(path, ipcPrefix))
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (s *Server) handleIPC(ctx *fasthttp.RequestCtx, channel string) {
	start := time.Now()
	id := uuid.NewString()
	ctx.Response.Header.Set(requestIDHeader, id)

	if !ctx.IsPost() {
		ctx.Response.Header.Set(fasthttp.HeaderAllow, fasthttp.MethodPost)
		s.reply(ctx, fasthttp.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		s.observe(id, channel, fasthttp.StatusMethodNotAllowed, start)
		return
	}

	body := ctx.PostBody()
	if len(body) > 0 && !json.Valid(body) {
		s.reply(ctx, fasthttp.StatusBadRequest, Response{Error: "request body is not valid JSON"})
		s.observe(id, channel, fasthttp.StatusBadRequest, start)
		return
	}

	// Copied: the body buffer is reused once the handler returns
	payload := json.RawMessage(append([]byte(nil), body...))

	result, err := s.router.Dispatch(ctx, channel, payload)
	status := statusFor(err)
	if err != nil {
		if status == fasthttp.StatusInternalServerError {
			s.logger.Error("ipc handler failed", channel, err, "request_id="+id)
		}
		s.reply(ctx, status, Response{Error: err.Error()})
	} else {
		s.reply(ctx, status, Response{OK: true, Result: result})
	}
	s.observe(id, channel, status, start)
}

func (s *Server) reply(ctx *fasthttp.RequestCtx, status int, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		data, _ = json.Marshal(Response{Error: "result is not JSON-encodable"})
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}

func (s *Server) observe(id, channel string, status int, start time.Time) {
	elapsed := time.Since(start)
	s.logger.Debug("ipc request", map[string]any{
		"request_id":  id,
		"channel":     channel,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	})

	if s.requests == nil {
		return
	}
	// Unknown channels share one label value to keep cardinality bounded
	label := channel
	if !IsAllowed(channel) {
		label = "unauthorized"
	}
	s.requests.WithLabelValues(label, strconv.Itoa(status)).Inc()
	s.latency.WithLabelValues(label).Observe(elapsed.Seconds())
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return fasthttp.StatusOK
	case errors.Is(err, ErrChannelNotAllowed):
		return fasthttp.StatusForbidden
	case errors.Is(err, ErrNoHandler):
		return fasthttp.StatusNotImplemented
	case errors.Is(err, ErrBadPayload):
		return fasthttp.StatusBadRequest
	default:
		return fasthttp.StatusInternalServerError
	}
}
