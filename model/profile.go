package model

// UserProfile holds the optional public-facing profile for a user.
// PhonePublic / AddressPublic gate whether the respective fields are
// visible to other users.
type UserProfile struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	AvatarURL     string `gorm:"size:256" json:"avatar_url,omitempty"`
	Gender        string `gorm:"size:16" json:"gender,omitempty"`
	Address       string `gorm:"size:256" json:"address,omitempty"`
	Education     string `gorm:"size:128" json:"education,omitempty"`
	PhonePublic   bool   `gorm:"default:false" json:"phone_public"`
	AddressPublic bool   `gorm:"default:false" json:"address_public"`
}
