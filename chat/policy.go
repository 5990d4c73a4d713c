package chat

import (
	"context"
	"fmt"

	"github.com/azattekce/redischat/model"
	"gorm.io/gorm"
)

// Policy evaluates the relationship state between two user identities.
// It always consults the current store state; results are never cached.
type Policy struct {
	db *gorm.DB
}

// NewPolicy creates a Policy over the given database.
func NewPolicy(db *gorm.DB) *Policy {
	return &Policy{db: db}
}

// AreFriends reports whether an accepted friendship edge exists between
// a and b in either direction.
func (p *Policy) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&model.FriendRequest{}).
		Where("((from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)) AND status = ?",
			a, b, b, a, model.FriendAccepted).
		Count(&count).Error
	return count > 0, err
}

// IsBlocked reports whether either user has blocked the other. The
// stored edge is directional but a block silences both directions.
func (p *Policy) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&model.FriendBlock{}).
		Where("(blocker_user_id = ? AND blocked_user_id = ?) OR (blocker_user_id = ? AND blocked_user_id = ?)",
			a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// Authorize runs the policy gate for a message or signaling action from
// one user to another: block check first, friendship second. Returns a
// wrapped ErrForbidden on violation.
func (p *Policy) Authorize(ctx context.Context, from, to string) error {
	blocked, err := p.IsBlocked(ctx, from, to)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: user is blocked", ErrForbidden)
	}
	friends, err := p.AreFriends(ctx, from, to)
	if err != nil {
		return err
	}
	if !friends {
		return fmt.Errorf("%w: users are not friends", ErrForbidden)
	}
	return nil
}
