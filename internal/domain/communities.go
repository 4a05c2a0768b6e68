package domain

import "time"

type CommunityPrivacy string

const (
	PrivacyPublic   CommunityPrivacy = "public"
	PrivacyPrivate  CommunityPrivacy = "private"
	PrivacyReadOnly CommunityPrivacy = "read-only"
)

func (p CommunityPrivacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacyReadOnly:
		return true
	}
	return false
}

const MaxCommunityTags = 5

type MemberRole string

const (
	RoleNone   MemberRole = ""
	RoleMember MemberRole = "member"
	RoleAdmin  MemberRole = "admin"
)

type Community struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	AuthorID     string           `json:"authorId"`
	Author       UserSummary      `json:"author"`
	Privacy      CommunityPrivacy `json:"privacy"`
	Tags         []string         `json:"tags"`
	Image        string           `json:"image"`
	CoverImage   string           `json:"coverImage"`
	Admins       []string         `json:"admins"`
	MembersCount int              `json:"membersCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// CanPost reports whether a user holding role may publish in c. Only admins
// and the author may post in private or read-only communities.
func (c Community) CanPost(userID string, role MemberRole) bool {
	if userID == c.AuthorID || role == RoleAdmin {
		return true
	}
	return c.Privacy == PrivacyPublic && role == RoleMember
}

type NewCommunity struct {
	Name        string
	Description string
	AuthorID    string
	Privacy     CommunityPrivacy
	Tags        []string
	Image       string
	CoverImage  string
}

type CommunityMember struct {
	User     UserSummary `json:"user"`
	IsAdmin  bool        `json:"isAdmin"`
	IsAuthor bool        `json:"isAuthor"`
	JoinedAt time.Time   `json:"joinedAt"`
}

// LeaveOutcome describes what a successful leave changed.
type LeaveOutcome struct {
	NewAuthorID string `json:"newAuthorId,omitempty"`
}

// PlanLeave decides what happens when userID leaves a community written by
// authorID. otherAdmins lists the remaining admins, longest-serving first.
// The author may only leave when another admin can take over.
func PlanLeave(authorID, userID string, role MemberRole, otherAdmins []string) (LeaveOutcome, error) {
	if userID != authorID {
		if role == RoleNone {
			return LeaveOutcome{}, Decline(ErrValidation, "You are not a member of this community")
		}
		return LeaveOutcome{}, nil
	}
	if len(otherAdmins) == 0 {
		return LeaveOutcome{}, Decline(ErrConflict, "As the only admin, you cannot leave this community. Make another member an admin first or delete the community.")
	}
	return LeaveOutcome{NewAuthorID: otherAdmins[0]}, nil
}
