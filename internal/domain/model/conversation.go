package model

import "time"

type ConversationStatus string

const (
	ConversationOpen   ConversationStatus = "open"
	ConversationClosed ConversationStatus = "closed"
)

// サポートとの会話
type Conversation struct {
	ID        int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64              `gorm:"not null;index" json:"user_id"`
	Subject   string             `gorm:"type:varchar(255);not null" json:"subject"`
	Status    ConversationStatus `gorm:"type:varchar(10);not null;default:'open'" json:"status"`
	CreatedAt time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"not null;index" json:"conversation_id"`
	SenderID       int64     `gorm:"not null" json:"sender_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
