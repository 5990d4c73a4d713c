package model

import "time"

// Friend request status values.
const (
	FriendPending  = 0
	FriendAccepted = 1
	FriendRejected = 2
)

// FriendRequest is one logical friendship edge between two users.
// The pair is stored in the direction the request was sent; friendship
// queries must check both orderings.
type FriendRequest struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID string    `gorm:"index:idx_friend_from;size:36;not null" json:"from_user_id"`
	ToUserID   string    `gorm:"index:idx_friend_to;size:36;not null" json:"to_user_id"`
	Status     int       `gorm:"default:0" json:"status"` // 0=pending 1=accepted 2=rejected
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FriendBlock records that blocker has blocked blocked. Storage is
// directional; messaging checks treat a block as cutting both directions.
type FriendBlock struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerUserID string `gorm:"index:idx_block_pair;size:36;not null" json:"blocker_user_id"`
	BlockedUserID string `gorm:"index:idx_block_pair;size:36;not null" json:"blocked_user_id"`
}
