package users

import "time"

type User struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	Username     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Region       string    `gorm:"type:varchar(100);not null;default:''"`
	Bio          string    `gorm:"type:text"`
	AvatarURL    string    `gorm:"type:varchar(512);not null;default:''"`
	CreatedAt    time.Time `gorm:"precision:3;not null"`
	UpdatedAt    time.Time `gorm:"precision:3;not null"`
}

func (User) TableName() string { return "users" }
