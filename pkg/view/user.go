package view

import "github.com/Simon-Ruto/Together-Crowdfunding/internal/modules/users"

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Region    string `json:"region"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
	CreatedAt string `json:"createdAt"`
}

// UserFrom renders a profile. The email is only shown to its owner.
func UserFrom(u users.User, self bool) User {
	out := User{
		ID:        u.ID,
		Username:  u.Username,
		Region:    u.Region,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CreatedAt: timestamp(u.CreatedAt),
	}
	if self {
		out.Email = u.Email
	}
	return out
}
