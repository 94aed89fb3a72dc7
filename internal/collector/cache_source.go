package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/fleet-autoscaler/pkg/config"
)

// sample lists longer than this are truncated; the producer trims with
// LTRIM on its side but a stuck producer must not make reads unbounded
const maxSamples = 1000

// RedisSampleSource reads rolling sample lists from Redis. Non-numeric
// entries are skipped rather than failing the whole read.
type RedisSampleSource struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisSampleSource(cfg config.CacheConfig) *RedisSampleSource {
	timeout := cfg.ReadTimeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisSampleSource{client: client, timeout: timeout}
}

func (s *RedisSampleSource) Samples(ctx context.Context, key string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.LRange(ctx, key, 0, maxSamples-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCollectionFailed, key, err)
	}

	samples := make([]float64, 0, len(raw))
	for _, item := range raw {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			continue
		}
		samples = append(samples, v)
	}
	return samples, nil
}

func (s *RedisSampleSource) Close() error {
	return s.client.Close()
}
