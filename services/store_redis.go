package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quizlive/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// sessionTTL bounds how long a hot aggregate survives in redis; the
// database row is the durable copy.
const sessionTTL = 2 * time.Hour

// RedisStore keeps the hot session aggregate in redis and writes
// through to postgres. Reads prefer redis and fall back to the
// database, re-priming the cache.
type RedisStore struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewRedisStore(db *gorm.DB, redisClient *redis.Client) *RedisStore {
	return &RedisStore{db: db, redis: redisClient}
}

func (s *RedisStore) Create(ctx context.Context, session *models.GameSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return s.cache(ctx, session)
}

func (s *RedisStore) Get(ctx context.Context, sessionID uint) (*models.GameSession, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Result()
	if err == nil {
		var session models.GameSession
		if err := json.Unmarshal([]byte(data), &session); err == nil {
			return &session, nil
		}
		log.Printf("Discarding unreadable cached session %d", sessionID)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("Redis error reading session %d: %v", sessionID, err)
	}

	var session models.GameSession
	err = s.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, id ASC")
		}).
		Preload("Answers").
		First(&session, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("session %d not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := s.cache(ctx, &session); err != nil {
		log.Printf("Failed to re-cache session %d: %v", sessionID, err)
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *models.GameSession) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(session).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return s.cache(ctx, session)
}

func (s *RedisStore) ActiveByGame(ctx context.Context, gameID uint) (*models.GameSession, bool, error) {
	var session models.GameSession
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND state != ?", gameID, models.StateEnded).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup active session: %w", err)
	}
	return &session, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.GameSession{}, sessionID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		log.Printf("Redis error evicting session %d: %v", sessionID, err)
	}
	return nil
}

// ActiveSessions lists every non-ended session, used at startup to
// rebuild the PIN registry.
func (s *RedisStore) ActiveSessions(ctx context.Context) ([]models.GameSession, error) {
	var active []models.GameSession
	err := s.db.WithContext(ctx).
		Where("state != ?", models.StateEnded).
		Find(&active).Error
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return active, nil
}

func (s *RedisStore) cache(ctx context.Context, session *models.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.ID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("cache session: %w", err)
	}
	return nil
}

func sessionKey(sessionID uint) string {
	return fmt.Sprintf("session:%d", sessionID)
}
