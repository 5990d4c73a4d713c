package chat

import (
	"context"
	"errors"

	"github.com/azattekce/redischat/model"
	"gorm.io/gorm"
)

// MessageStore persists private chat messages. Rows are append-only:
// the only permitted mutation is setting one of the per-side soft-delete
// flags.
type MessageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a MessageStore over the given database.
func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append persists a new message and returns the stored row with its
// assigned ID and send timestamp. Persistence must complete before any
// fanout publish for the message happens.
func (st *MessageStore) Append(ctx context.Context, from, to, content string) (*model.ChatMessage, error) {
	msg := &model.ChatMessage{
		FromUserID: from,
		ToUserID:   to,
		Content:    content,
	}
	if err := st.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// ListConversation returns the messages between self and other ordered
// by send time ascending, excluding messages the caller soft-deleted on
// their own side. A message deleted by one side stays visible to the other.
func (st *MessageStore) ListConversation(ctx context.Context, self, other string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := st.db.WithContext(ctx).
		Where("(from_user_id = ? AND to_user_id = ? AND is_deleted_by_sender = ?)"+
			" OR (from_user_id = ? AND to_user_id = ? AND is_deleted_by_recipient = ?)",
			self, other, false, other, self, false).
		Order("sent_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// SoftDelete hides the message from the caller's side of the conversation.
// The caller must be the sender or the recipient; the matching flag is
// set. Deleting an already-deleted message is a no-op success.
func (st *MessageStore) SoftDelete(ctx context.Context, id int64, caller string) error {
	var msg model.ChatMessage
	if err := st.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	var column string
	switch caller {
	case msg.FromUserID:
		column = "is_deleted_by_sender"
	case msg.ToUserID:
		column = "is_deleted_by_recipient"
	default:
		return ErrForbidden
	}
	return st.db.WithContext(ctx).Model(&msg).Update(column, true).Error
}
