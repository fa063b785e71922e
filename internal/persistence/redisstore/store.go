package redisstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sawpanic/baccarun/internal/session"
)

// Store keeps session snapshots as JSON strings plus an index set of ids
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore connects to addr and checks the connection
func NewStore(addr string, db int, prefix string) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewStoreWithClient(rdb, prefix), nil
}

// NewStoreWithClient wraps an existing client
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(id string) string { return fmt.Sprintf("%s:session:%s", s.prefix, id) }
func (s *Store) indexKey() string     { return s.prefix + ":sessions" }

// Save stores the snapshot and indexes its id
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	data, err := session.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", snap.SessionID, err)
	}
	if err := s.client.Set(ctx, s.key(snap.SessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := s.client.SAdd(ctx, s.indexKey(), snap.SessionID).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// Load fetches and validates a snapshot
func (s *Store) Load(ctx context.Context, id string) (session.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return session.Snapshot{}, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("redis get: %w", err)
	}
	return session.UnmarshalSnapshot(val)
}

// Delete drops the snapshot and its index entry
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if err := s.client.SRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

// List returns the indexed session ids, sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the client
func (s *Store) Close() error {
	return s.client.Close()
}
