package model_test

import (
	"testing"

	"github.com/azattekce/redischat/model"
	"github.com/azattekce/redischat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// User
	user := &model.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "hash",
	}
	require.NoError(t, db.Create(user).Error)

	var found model.User
	require.NoError(t, db.First(&found, "id = ?", "user-1").Error)
	assert.Equal(t, "alice@example.com", found.Email)

	// UserProfile
	profile := &model.UserProfile{UserID: user.ID, AvatarURL: "https://example.com/a.png"}
	require.NoError(t, db.Create(profile).Error)

	// FriendRequest
	fr := &model.FriendRequest{FromUserID: user.ID, ToUserID: "user-2", Status: model.FriendPending}
	require.NoError(t, db.Create(fr).Error)
	assert.Greater(t, fr.ID, int64(0))

	// FriendBlock
	fb := &model.FriendBlock{BlockerUserID: user.ID, BlockedUserID: "user-2"}
	require.NoError(t, db.Create(fb).Error)

	// ChatMessage
	msg := &model.ChatMessage{FromUserID: user.ID, ToUserID: "user-2", Content: "hi"}
	require.NoError(t, db.Create(msg).Error)
	assert.False(t, msg.SentAt.IsZero())

	// AuditLog
	al := &model.AuditLog{TraceID: "trace-001", Action: "login"}
	require.NoError(t, db.Create(al).Error)
}

func TestUser_UniqueEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.User{
		ID: "u1", Email: "dup@example.com", DisplayName: "A", PasswordHash: "h",
	}).Error)
	err := db.Create(&model.User{
		ID: "u2", Email: "dup@example.com", DisplayName: "B", PasswordHash: "h",
	}).Error
	assert.Error(t, err)
}
