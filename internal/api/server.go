package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"fleetnav/internal/config"
	"fleetnav/internal/store"
	"fleetnav/internal/webhooks"
)

// Server wires the solver to its HTTP surface: persistence, the progress
// event broker, and the webhook publisher.
type Server struct {
	Cfg    config.Config
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter // client ip -> solve submission bucket
}

// NewServer creates a Server. Without a database URL it runs on the
// in-memory store; without a Redis URL progress events stay in-process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.EnsureSchema(context.Background()); err != nil {
			return nil, err
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Printf("redis broker unavailable, falling back to in-memory: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}
	return &Server{Cfg: cfg, Store: s, Pub: webhooks.NewPublisher(s), Broker: broker}, nil
}

// NewWebhookWorker creates the background webhook delivery worker.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Cfg.Webhooks.MaxAttempts)
}

func (s *Server) tenant(r *http.Request) string {
	// Tenant comes from a header; production deployments front this with a
	// gateway that fills it in from credentials.
	t := r.Header.Get("X-Tenant-Id")
	if t == "" {
		t = "t_demo"
	}
	return t
}
