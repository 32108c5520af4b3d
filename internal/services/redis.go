package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leefowlercu/servicecontainer/internal/actor"
	"github.com/leefowlercu/servicecontainer/internal/servicecontainer"
)

// KindRedis holds a Redis client. It has started once a PING succeeds and
// closes the client on stop. Options: addr, password, db, dial_timeout,
// max_retries. Its value is the *redis.Client.
const KindRedis = "redis"

type redisService struct {
	opts          *redis.Options
	interruptible bool
	client        *redis.Client
}

func newRedis(def Definition) (servicecontainer.Service, error) {
	db, err := strconv.Atoi(def.Entry.Option("db", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid db; %w", err)
	}
	dialTimeout, err := time.ParseDuration(def.Entry.Option("dial_timeout", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout; %w", err)
	}
	maxRetries, err := strconv.Atoi(def.Entry.Option("max_retries", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid max_retries; %w", err)
	}

	return &redisService{
		opts: &redis.Options{
			Addr:        def.Entry.Option("addr", "localhost:6379"),
			Password:    def.Entry.Option("password", ""),
			DB:          db,
			DialTimeout: dialTimeout,
			MaxRetries:  maxRetries,
		},
		interruptible: def.Entry.Interruptible,
	}, nil
}

func (s *redisService) Start(ctx *servicecontainer.StartContext) error {
	client := redis.NewClient(s.opts)
	s.client = client
	lifetime := ctx.Context()

	ctx.Async(actor.Run(ctx.Scheduler(), func() error {
		if err := client.Ping(lifetime).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to ping redis at %s; %w", s.opts.Addr, err)
		}
		return nil
	}), s.interruptible)
	return nil
}

func (s *redisService) Stop(*servicecontainer.StopContext) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil && err != redis.ErrClosed {
		return fmt.Errorf("failed to close redis client; %w", err)
	}
	return nil
}

func (s *redisService) Get() any {
	return s.client
}
