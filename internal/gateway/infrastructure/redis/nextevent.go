// Package redis holds the gateway's Redis-backed next-event read model.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eventhive/eventhive/internal/gateway/application"
)

type NextEventStore struct {
	rdb *goredis.Client
}

func NewNextEventStore(rdb *goredis.Client) *NextEventStore {
	return &NextEventStore{rdb: rdb}
}

func key(username string) string {
	return "next_event:" + username
}

func (s *NextEventStore) Get(ctx context.Context, username string) (application.NextEvent, bool, error) {
	raw, err := s.rdb.Get(ctx, key(username)).Result()
	if errors.Is(err, goredis.Nil) {
		return application.NextEvent{}, false, nil
	}
	if err != nil {
		return application.NextEvent{}, false, fmt.Errorf("get next event: %w", err)
	}

	var ev application.NextEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return application.NextEvent{}, false, fmt.Errorf("decode next event: %w", err)
	}
	return ev, true, nil
}

func (s *NextEventStore) Set(ctx context.Context, username string, ev application.NextEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode next event: %w", err)
	}
	if err := s.rdb.Set(ctx, key(username), raw, 0).Err(); err != nil {
		return fmt.Errorf("set next event: %w", err)
	}
	return nil
}
