package kvstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

type RedisHandleParams struct {
	// URL takes precedence over Host/Port/Password/DB when set.
	URL            string
	Host           string
	Port           string
	Password       string
	DB             int
	TracingEnabled bool
}

// RedisHandle is the process-wide redis connection. The client is built on
// first use and shared by everyone holding the handle.
type RedisHandle struct {
	params RedisHandleParams

	once    sync.Once
	mu      sync.Mutex
	client  *redis.Client
	initErr error
	closed  bool
}

var ErrHandleClosed = errors.New("redis handle closed")

func NewRedisHandle(params RedisHandleParams) *RedisHandle {
	return &RedisHandle{params: params}
}

// NewRedisHandleFromClient wraps an already built client, used with redismock.
func NewRedisHandleFromClient(client *redis.Client) *RedisHandle {
	h := &RedisHandle{client: client}
	h.once.Do(func() {})
	return h
}

func (h *RedisHandle) Client() (*redis.Client, error) {
	h.once.Do(func() {
		opts, err := h.params.options()
		if err != nil {
			h.initErr = err
			return
		}

		client := redis.NewClient(opts)
		if h.params.TracingEnabled {
			client.AddHook(redisotel.NewTracingHook())
		}

		h.mu.Lock()
		h.client = client
		h.mu.Unlock()
		log.Debugf("redis client initialized for [%s]", opts.Addr)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initErr != nil {
		return nil, h.initErr
	}
	if h.closed {
		return nil, ErrHandleClosed
	}
	return h.client, nil
}

func (h *RedisHandle) Ping(ctx context.Context) error {
	client, err := h.Client()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Close closes the client if it was ever initialized.
func (h *RedisHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil || h.closed {
		return nil
	}
	h.closed = true
	return h.client.Close()
}

// Initialized reports whether the client has been built.
func (h *RedisHandle) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client != nil
}

func (p RedisHandleParams) options() (*redis.Options, error) {
	if p.URL != "" {
		opts, err := redis.ParseURL(p.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	if p.Host == "" {
		return nil, fmt.Errorf("redis host not set")
	}
	port := p.Port
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(p.Host, port),
		Password: p.Password,
		DB:       p.DB,
	}, nil
}
