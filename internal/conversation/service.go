// Package conversation persists chat history and the latest order snapshot,
// keyed by the visitor id. Writes are best effort relative to the in-memory
// session: callers log failures and carry on.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"figurachat/internal/models"
	"figurachat/internal/redis"
)

const (
	snapshotKeyPrefix = "chat:order:"
	snapshotTTL       = 30 * time.Minute
)

// snapshotCache is the slice of the redis client the snapshot mirror needs.
type snapshotCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service is the conversation log over the relational store, with an optional
// redis cache in front of the order snapshot.
type Service struct {
	db    *sql.DB
	cache snapshotCache
}

// NewService builds the conversation log. cache may be nil.
func NewService(db *sql.DB, cache *redis.Client) *Service {
	s := &Service{db: db}
	if cache != nil {
		s.cache = cache
	}
	return s
}

// GetOrCreate returns the conversation id and stored order snapshot for the
// user, creating an empty conversation on first contact.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (int64, *models.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, nil, errors.New("user id is required")
	}

	var (
		convID  int64
		rawData sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, order_data FROM conversations WHERE user_id = ?`, userID,
	).Scan(&convID, &rawData)
	if err == nil {
		return convID, decodeOrder(rawData.String), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("lookup conversation: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, order_data, status, created_at, updated_at) VALUES (?, '', 'active', ?, ?)`,
		userID, now, now,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("create conversation: %w", err)
	}
	convID, err = res.LastInsertId()
	if err != nil {
		return 0, nil, fmt.Errorf("conversation id: %w", err)
	}
	return convID, nil, nil
}

// SaveMessage appends one chat entry and, when a snapshot is supplied,
// refreshes the stored order alongside it.
func (s *Service) SaveMessage(ctx context.Context, userID string, role models.Role, content string, order *models.Order) error {
	convID, _, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		convID, role, content, now,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if order != nil {
		return s.UpdateOrder(ctx, userID, order)
	}
	return nil
}

// History returns up to limit entries for the user, oldest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		 FROM messages m JOIN conversations c ON m.conversation_id = c.id
		 WHERE c.user_id = ? ORDER BY m.id ASC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := new(models.Message)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// UpdateOrder mirrors the order snapshot to the database and, best effort, to
// the cache.
func (s *Service) UpdateOrder(ctx context.Context, userID string, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET order_data = ?, updated_at = ? WHERE user_id = ?`,
		string(data), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update order data: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if _, _, err := s.GetOrCreate(ctx, userID); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE conversations SET order_data = ?, updated_at = ? WHERE user_id = ?`,
			string(data), time.Now().UTC(), userID,
		); err != nil {
			return fmt.Errorf("update order data: %w", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshotKeyPrefix+userID, string(data), snapshotTTL); err != nil {
			log.Printf("cache order snapshot for %s failed: %v", userID, err)
		}
	}
	return nil
}

// LatestOrder returns the most recent snapshot for the user, consulting the
// cache before the database. A missing conversation yields a nil order.
func (s *Service) LatestOrder(ctx context.Context, userID string) (*models.Order, error) {
	if s.cache != nil {
		key := snapshotKeyPrefix + userID
		raw, err := s.cache.Get(ctx, key)
		if err == nil {
			if order := decodeOrder(raw); order != nil {
				return order, nil
			}
			// The cached entry does not decode, drop it and reload from the
			// database.
			if derr := s.cache.Del(ctx, key); derr != nil {
				log.Printf("drop order snapshot cache for %s failed: %v", userID, derr)
			}
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			log.Printf("read order snapshot cache for %s failed: %v", userID, err)
		}
	}

	var rawData sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT order_data FROM conversations WHERE user_id = ?`, userID,
	).Scan(&rawData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order snapshot: %w", err)
	}
	return decodeOrder(rawData.String), nil
}

func decodeOrder(raw string) *models.Order {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" || raw == "null" {
		return nil
	}
	var order models.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		log.Printf("decode stored order failed: %v", err)
		return nil
	}
	if order.Photos == nil {
		order.Photos = []models.Photo{}
	}
	return &order
}
