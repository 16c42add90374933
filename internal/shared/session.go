package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session carries the authenticated caller's identity for a request. Every
// core operation receives it already resolved; branch scope follows the
// caller's active branch, not necessarily the user's home branch.
type Session struct {
	Token    string `json:"-"`
	UserID   int64  `json:"user_id"`
	TenantID int64  `json:"tenant_id"`
	BranchID int64  `json:"branch_id"`
	Role     string `json:"role"`
}

// SessionManager stores bearer-token sessions in Redis.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Create persists a new session and returns its bearer token.
func (sm *SessionManager) Create(ctx context.Context, sess Session) (string, error) {
	token := uuid.NewString()
	sess.Token = token
	data, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.key(token), data, sm.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Load resolves a bearer token into a session, refreshing its TTL.
func (sm *SessionManager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}
	data, err := sm.client.Get(ctx, sm.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	sess.Token = token
	_ = sm.client.Expire(ctx, sm.key(token), sm.ttl).Err()
	return &sess, nil
}

// Destroy removes a session token.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return sm.client.Del(ctx, sm.key(token)).Err()
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) key(token string) string {
	return "session:" + token
}
