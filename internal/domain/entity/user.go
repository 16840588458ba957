package entity

import "time"

type User struct {
	ID        string    `json:"id" firestore:"id"`
	Username  string    `json:"username" firestore:"username"`
	Email     string    `json:"email" firestore:"email"`
	AvatarURL string    `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	FCMToken  string    `json:"-" firestore:"fcmToken,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ParticipantSnapshot freezes the display fields a channel keeps for a
// participant, with the role fixed at channel creation.
func (u *User) ParticipantSnapshot(role string) ParticipantSnapshot {
	return ParticipantSnapshot{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Role:      role,
	}
}
