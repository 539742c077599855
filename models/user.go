package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account that can author posts. Passwords are stored as bcrypt hashes only.
// Users are hard deleted; their posts go with them.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:254" json:"email,omitempty"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	BlogPosts    []Post    `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// DeleteUserCascade removes a user together with every post they authored,
// inside one transaction. It returns the number of posts removed.
func DeleteUserCascade(db *gorm.DB, userID uint) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		res := tx.Where("author_id = ?", user.ID).Delete(&Post{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&user).Error
	})
	return removed, err
}
