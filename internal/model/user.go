package model

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username     string    `gorm:"size:255;not null;uniqueIndex" bson:"username" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" bson:"email" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" bson:"password" json:"-"`
	Bio          string    `gorm:"type:text" bson:"bio,omitempty" json:"bio,omitempty"`
	ProfileImage string    `gorm:"size:512" bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// UserPatch lists the profile fields a user may change; nil means unchanged.
type UserPatch struct {
	Bio          *string
	ProfileImage *string
}
