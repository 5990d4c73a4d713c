package model

import "time"

// ChatMessage is a persisted private message. Rows are never physically
// deleted or edited; each side owns one soft-delete flag that only hides
// the message from that side's conversation listing.
type ChatMessage struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID           string    `gorm:"index:idx_msg_from;size:36;not null" json:"from_user_id"`
	ToUserID             string    `gorm:"index:idx_msg_to;size:36;not null" json:"to_user_id"`
	Content              string    `gorm:"type:text;not null" json:"content"`
	SentAt               time.Time `gorm:"autoCreateTime;index" json:"sent_at"`
	IsDeletedBySender    bool      `gorm:"default:false" json:"-"`
	IsDeletedByRecipient bool      `gorm:"default:false" json:"-"`
}
