package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email,omitempty"`
	Username     string     `json:"username"`
	Firstname    string     `json:"firstname"`
	Lastname     string     `json:"lastname"`
	Role         UserRole   `json:"role"`
	Avatar       string     `json:"avatar"`
	CoverPicture string     `json:"coverPicture"`
	About        string     `json:"about"`
	LivesIn      string     `json:"livesin"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Avatar:    u.Avatar,
	}
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// NewUser is the input for account creation.
type NewUser struct {
	Email        string
	Username     string
	Firstname    string
	Lastname     string
	PasswordHash string
	Role         UserRole
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username     *string
	Firstname    *string
	Lastname     *string
	About        *string
	LivesIn      *string
	Avatar       *string
	CoverPicture *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Firstname == nil && p.Lastname == nil &&
		p.About == nil && p.LivesIn == nil && p.Avatar == nil && p.CoverPicture == nil
}

type Profile struct {
	User
	PostCount    int `json:"postCount"`
	FriendsCount int `json:"friendsCount"`
}

type ExternalAccount struct {
	ID         string
	UserID     string
	Provider   string
	ProviderID string
	Email      string
	CreatedAt  time.Time
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
