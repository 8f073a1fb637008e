package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/kvnotes/internal/config"
	"github.com/2beens/kvnotes/internal/kvstore"
	"github.com/2beens/kvnotes/internal/middleware"
	"github.com/2beens/kvnotes/internal/misc"
	notesBox "github.com/2beens/kvnotes/internal/notes_box"
	"github.com/2beens/kvnotes/internal/telemetry/metrics"
	"github.com/2beens/kvnotes/internal/telemetry/tracing"
	"github.com/2beens/kvnotes/internal/web"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	versionInfo string
	store       kvstore.Store
	redisHandle *kvstore.RedisHandle // nil with the memory store

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("kvnotes", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // set to 1 once serving

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "kvnotes")
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         params.Config,
		versionInfo:    params.VersionInfo,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	switch params.Config.Store {
	case config.StoreMemory:
		log.Warnln("using in-memory notes store, notes are lost on restart")
		s.store = kvstore.NewMemoryStore()
	case config.StoreRedis:
		s.redisHandle = kvstore.NewRedisHandle(kvstore.RedisHandleParams{
			URL:            params.Config.RedisURL,
			Host:           params.Config.RedisHost,
			Port:           params.Config.RedisPort,
			Password:       params.Config.RedisPassword,
			DB:             params.Config.RedisDB,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if _, err := s.redisHandle.Client(); err != nil {
			otelShutdown()
			return nil, fmt.Errorf("redis client: %w", err)
		}
		if err := s.redisHandle.Ping(ctx); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugln("redis ping ok")
		}
		s.store = kvstore.NewRedisStore(s.redisHandle)
	default:
		otelShutdown()
		return nil, fmt.Errorf("unknown store [%s]", params.Config.Store)
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("notes-router"))

	var reqRateLimiter middleware.RequestRateLimiter
	if s.redisHandle != nil && s.config.MutationsRateLimitPerMin > 0 {
		rdb, err := s.redisHandle.Client()
		if err != nil {
			return nil, fmt.Errorf("rate limiter redis client: %w", err)
		}
		reqRateLimiter = redis_rate.NewLimiter(rdb)
	} else if s.config.MutationsRateLimitPerMin > 0 {
		log.Warnln("mutations rate limit needs the redis store, rate limiting disabled")
	}

	notesHandler := notesBox.NewHandler(
		notesBox.NewRepo(s.store, notesBox.WithKeyPrefix(s.config.NotesKeyPrefix)),
		s.metricsManager,
	)
	notesHandler.SetupRoutes(r, reqRateLimiter, s.config.MutationsRateLimitPerMin)

	web.NewHandler().SetupRoutes(r)

	var storeCheck misc.StoreCheck
	if s.redisHandle != nil {
		storeCheck = s.redisHandle.Ping
	}
	misc.NewHandler(s.versionInfo, storeCheck).SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	if s.config.PrometheusMetricsPort != "" {
		metricsRouter := mux.NewRouter()
		metricsRouter.Handle("/metrics", promhttp.HandlerFor(
			s.promRegistry,
			promhttp.HandlerOpts{Registry: s.promRegistry},
		))
		metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
		s.metricsHttpServer = &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsRouter,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Debugf(" > metrics listening on: [%s]", metricsAddr)
			err := s.metricsHttpServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("metrics service, listen and serve: %s", err)
			}
		}()
	} else {
		log.Debugln("prometheus metrics port not set, metrics server disabled")
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the store goes away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.redisHandle != nil {
		if err := s.redisHandle.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
