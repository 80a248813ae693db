package db

// SessionMessage is one backend message as it arrived, kept so a session can
// be replayed in historical mode.
type SessionMessage struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID   string `gorm:"column:session_id;not null;uniqueIndex:idx_session_messages_session_message,priority:1"`
	MessageID   string `gorm:"column:message_id;not null;uniqueIndex:idx_session_messages_session_message,priority:2"`
	Type        string `gorm:"column:type;not null;default:''"`
	PayloadJSON string `gorm:"column:payload_json;not null;default:''"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
}

func (SessionMessage) TableName() string { return "session_messages" }

// Session tracks journal activity per session.
type Session struct {
	SessionID     string `gorm:"column:session_id;primaryKey"`
	MessageCount  int64  `gorm:"column:message_count;not null;default:0"`
	FirstSeenAt   int64  `gorm:"column:first_seen_at;not null;default:0"`
	LastMessageAt int64  `gorm:"column:last_message_at;not null;default:0"`
}

func (Session) TableName() string { return "sessions" }
