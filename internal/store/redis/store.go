// Package redis caches atlas artifacts in Redis and serves them to the API.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vanshika/internet-atlas/backend/internal/domain"
	"github.com/vanshika/internet-atlas/backend/internal/export"
	"github.com/vanshika/internet-atlas/backend/internal/store"
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// ErrEmptyAddress is returned when the Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

const connectionTimeout = 5 * time.Second

// NewClient connects to Redis and verifies the connection.
func NewClient(cfg Config) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyAddress
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Store keeps one suffix's artifacts under the atlas:<suffix>: prefix.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New returns a Store. A zero ttl keeps keys until the next publish.
func New(client goredis.UniversalClient, suffix string, ttl time.Duration) *Store {
	if suffix == "" {
		suffix = export.DefaultSuffix
	}
	return &Store{client: client, prefix: "atlas:" + suffix + ":", ttl: ttl}
}

func (s *Store) Name() string { return "redis" }

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (s *Store) userKey(userID int64) string {
	return s.key("user_edges", strconv.FormatInt(userID, 10))
}

// Publish replaces every artifact atomically. User sequences left over from
// the previous publish are removed.
func (s *Store) Publish(ctx context.Context, g domain.Graph) error {
	previous, err := s.client.SMembers(ctx, s.key("users")).Result()
	if err != nil {
		return fmt.Errorf("list previous users: %w", err)
	}

	edgeUsers := g.EdgeUsers
	if edgeUsers == nil {
		edgeUsers = domain.EdgeUsers{}
	}
	values := map[string]any{
		s.key("edges"):      export.NewEdgeList(g.Edges),
		s.key("edge_users"): edgeUsers,
		s.key("node_stats"): export.NewNodeStatsView(g.NodeStats),
	}
	userIDs := make([]any, 0, len(g.UserEdges))
	for _, ue := range g.UserEdges {
		values[s.userKey(ue.UserID)] = export.NewUserEdgeList(ue.Edges)
		userIDs = append(userIDs, strconv.FormatInt(ue.UserID, 10))
	}

	encoded := make(map[string][]byte, len(values))
	for key, v := range values {
		payload, err := encode(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		encoded[key] = payload
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range previous {
			pipe.Del(ctx, s.key("user_edges", id))
		}
		pipe.Del(ctx, s.key("users"))
		for key, payload := range encoded {
			pipe.Set(ctx, key, payload, s.ttl)
		}
		if len(userIDs) > 0 {
			pipe.SAdd(ctx, s.key("users"), userIDs...)
			if s.ttl > 0 {
				pipe.Expire(ctx, s.key("users"), s.ttl)
			}
		}
		pipe.Set(ctx, s.key("run_id"), g.RunID, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

func (s *Store) Edges(ctx context.Context) ([]domain.AggregatedEdge, error) {
	var list export.EdgeList
	if err := s.get(ctx, s.key("edges"), &list); err != nil {
		return nil, err
	}
	return list.AggregatedEdges(), nil
}

func (s *Store) EdgeUsers(ctx context.Context) (domain.EdgeUsers, error) {
	edgeUsers := domain.EdgeUsers{}
	if err := s.get(ctx, s.key("edge_users"), &edgeUsers); err != nil {
		return nil, err
	}
	return edgeUsers, nil
}

func (s *Store) UserEdges(ctx context.Context, userID int64) ([]domain.Transition, error) {
	var list export.EdgeList
	if err := s.get(ctx, s.userKey(userID), &list); err != nil {
		return nil, err
	}
	return list.Transitions(), nil
}

func (s *Store) NodeStats(ctx context.Context) (domain.NodeStats, error) {
	var view export.NodeStatsView
	if err := s.get(ctx, s.key("node_stats"), &view); err != nil {
		return domain.NodeStats{}, err
	}
	return view.NodeStats(), nil
}

// RunID returns the run id of the last publish.
func (s *Store) RunID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.key("run_id")).Result()
	if errors.Is(err, goredis.Nil) {
		return "", store.ErrNotFound
	}
	return id, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := export.Encode(&buf, v, export.Options{}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
