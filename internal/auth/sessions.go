package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tbourn/go-journal/internal/repo"
)

// SessionStore tracks issued session tokens by jti so that sign-out revokes
// a token before it expires.
type SessionStore interface {
	Create(ctx context.Context, id, accountID string, exp time.Time) error
	Active(ctx context.Context, id string, now time.Time) (bool, error)
	Revoke(ctx context.Context, id string) error
}

// GormSessions keeps sessions in the sessions table.
type GormSessions struct {
	DB *gorm.DB
}

func (s GormSessions) Create(ctx context.Context, id, accountID string, exp time.Time) error {
	return repo.CreateSession(ctx, s.DB, id, accountID, exp)
}

func (s GormSessions) Active(ctx context.Context, id string, now time.Time) (bool, error) {
	return repo.SessionActive(ctx, s.DB, id, now)
}

func (s GormSessions) Revoke(ctx context.Context, id string) error {
	return repo.RevokeSession(ctx, s.DB, id)
}

// RedisSessions keeps one key per live session with the token's remaining
// lifetime as TTL; revocation deletes the key.
type RedisSessions struct {
	Client *redis.Client
	Prefix string
}

func (s RedisSessions) key(id string) string {
	p := s.Prefix
	if p == "" {
		p = "journal:session:"
	}
	return p + id
}

func (s RedisSessions) Create(ctx context.Context, id, accountID string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return s.Client.Set(ctx, s.key(id), accountID, ttl).Err()
}

func (s RedisSessions) Active(ctx context.Context, id string, _ time.Time) (bool, error) {
	err := s.Client.Get(ctx, s.key(id)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s RedisSessions) Revoke(ctx context.Context, id string) error {
	return s.Client.Del(ctx, s.key(id)).Err()
}

// ConnectRedis parses a redis:// URL, applies pool and timeout settings and
// pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
