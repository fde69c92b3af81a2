package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ToolCallRecord is one executed tool invocation, persisted alongside the
// agent message that produced it.
type ToolCallRecord struct {
	Tool   string                 `json:"tool"`
	Args   map[string]interface{} `json:"args"`
	Result interface{}            `json:"result"`
}

// JSONBToolCalls stores tool call records as JSONB.
type JSONBToolCalls []ToolCallRecord

func (t JSONBToolCalls) Value() (driver.Value, error) {
	if len(t) == 0 {
		return nil, nil
	}
	return json.Marshal(t)
}

func (t *JSONBToolCalls) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, t)
}

// ChatMessage is one turn in a user's conversation log. Append-only.
type ChatMessage struct {
	ID        int            `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UserID    string         `gorm:"size:64;not null;index" json:"user_id"`
	Role      string         `gorm:"size:10;not null" json:"role"` // user or agent
	Content   string         `gorm:"type:text" json:"content"`
	ToolCalls JSONBToolCalls `gorm:"type:jsonb" json:"tool_calls"`
}

func (ChatMessage) TableName() string {
	return "chat_history"
}
