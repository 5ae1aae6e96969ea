package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/subgate/subgate-bot/types"
)

// RedisSessionStore keeps one conversational session per requester, indexed
// both by session id and by user id. Sessions expire with the store TTL and
// every update refreshes it.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSessionStore(redisClient *RedisClient, ttlHours int) *RedisSessionStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSessionStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) CreateSession(session *types.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.State == "" {
		session.State = types.StateIdle
	}

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.ttl)

	sessionKey := s.client.generateKey("session", session.ID)
	if err := s.client.Set(sessionKey, session, s.ttl); err != nil {
		return err
	}

	userSessionKey := s.client.generateKey("user_session", fmt.Sprintf("%d", session.UserID))
	if err := s.client.Set(userSessionKey, session.ID, s.ttl); err != nil {
		s.client.Del(sessionKey)
		return err
	}

	return nil
}

func (s *RedisSessionStore) GetSession(sessionID string) (*types.Session, error) {
	sessionKey := s.client.generateKey("session", sessionID)

	var session types.Session
	if err := s.client.Get(sessionKey, &session); err != nil {
		return nil, err
	}

	return &session, nil
}

func (s *RedisSessionStore) GetUserSession(userID int64) (*types.Session, error) {
	userSessionKey := s.client.generateKey("user_session", fmt.Sprintf("%d", userID))

	var sessionID string
	if err := s.client.Get(userSessionKey, &sessionID); err != nil {
		return nil, err
	}

	return s.GetSession(sessionID)
}

func (s *RedisSessionStore) UpdateSession(session *types.Session) error {
	session.UpdatedAt = time.Now()
	session.ExpiresAt = time.Now().Add(s.ttl)

	sessionKey := s.client.generateKey("session", session.ID)
	return s.client.Set(sessionKey, session, s.ttl)
}

func (s *RedisSessionStore) UpdateSessionState(sessionID string, state types.SessionState) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	session.State = state
	return s.UpdateSession(session)
}

// ClearSession ends the conversational turn sequence: the session record
// stays (same id, refreshed TTL) but every workflow field is dropped.
func (s *RedisSessionStore) ClearSession(sessionID string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	session.ResetWorkflow()
	return s.UpdateSession(session)
}
