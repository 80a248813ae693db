// Package historydb journals backend messages per session so a session can be
// replayed after a restart or reconnect.
package historydb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbmodel "github.com/EdanStarfire/claudecode-webui-sub000/internal/db"
	"github.com/EdanStarfire/claudecode-webui-sub000/internal/protocol"
)

var ErrNotInitialized = errors.New("history store is not initialized")

type Entry struct {
	SessionID string
	MessageID string
	Message   protocol.BackendMessage
	CreatedAt time.Time
}

type SessionInfo struct {
	SessionID     string    `json:"session_id"`
	MessageCount  int64     `json:"message_count"`
	FirstSeen     time.Time `json:"first_seen"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore uses the shared DB. Caller owns the db and closes it.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db, now: time.Now}, nil
}

// Append journals raw for sessionID. Messages without an id get a generated
// one; a repeated (session, id) pair is ignored and reported as not inserted.
func (s *Store) Append(sessionID string, raw []byte) (Entry, bool, error) {
	if s == nil || s.db == nil {
		return Entry{}, false, ErrNotInitialized
	}
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return Entry{}, false, protocol.ErrMissingSessionID
	}
	msg, err := protocol.DecodeBackendMessage(raw)
	if err != nil {
		return Entry{}, false, err
	}
	messageID := strings.TrimSpace(msg.ID)
	if messageID == "" {
		messageID = uuid.NewString()
	}
	now := s.now().UTC()
	row := dbmodel.SessionMessage{
		SessionID:   sid,
		MessageID:   messageID,
		Type:        msg.Type,
		PayloadJSON: string(raw),
		CreatedAt:   now.Unix(),
	}
	entry := Entry{SessionID: sid, MessageID: messageID, Message: msg, CreatedAt: time.Unix(row.CreatedAt, 0).UTC()}

	inserted := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_message_at": row.CreatedAt,
				"message_count":   gorm.Expr("sessions.message_count + 1"),
			}),
		}).Create(&dbmodel.Session{
			SessionID:     sid,
			MessageCount:  1,
			FirstSeenAt:   row.CreatedAt,
			LastMessageAt: row.CreatedAt,
		}).Error
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("append message for session %s: %w", sid, err)
	}
	return entry, inserted, nil
}

// List returns the session's messages in arrival order. With limit > 0 only
// the most recent limit messages are returned, still oldest first.
func (s *Store) List(sessionID string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	sid := strings.TrimSpace(sessionID)
	q := s.db.Where("session_id = ?", sid)
	rows := []dbmodel.SessionMessage{}
	if limit > 0 {
		if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	} else if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		msg, err := protocol.DecodeBackendMessage([]byte(row.PayloadJSON))
		if err != nil {
			return nil, fmt.Errorf("decode journaled message %s/%s: %w", row.SessionID, row.MessageID, err)
		}
		entries = append(entries, Entry{
			SessionID: row.SessionID,
			MessageID: row.MessageID,
			Message:   msg,
			CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		})
	}
	return entries, nil
}

// Messages is List without the journal bookkeeping.
func (s *Store) Messages(sessionID string, limit int) ([]protocol.BackendMessage, error) {
	entries, err := s.List(sessionID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.BackendMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out, nil
}

func (s *Store) Sessions() ([]SessionInfo, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	rows := []dbmodel.Session{}
	if err := s.db.Order("last_message_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, SessionInfo{
			SessionID:     row.SessionID,
			MessageCount:  row.MessageCount,
			FirstSeen:     time.Unix(row.FirstSeenAt, 0).UTC(),
			LastMessageAt: time.Unix(row.LastMessageAt, 0).UTC(),
		})
	}
	return out, nil
}

// Clear removes the session's journal.
func (s *Store) Clear(sessionID string) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	sid := strings.TrimSpace(sessionID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sid).Delete(&dbmodel.SessionMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sid).Delete(&dbmodel.Session{}).Error
	})
}
