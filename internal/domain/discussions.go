package domain

import "time"

type DiscussionCategory string

const (
	CategoryGeneral       DiscussionCategory = "general"
	CategoryTech          DiscussionCategory = "tech"
	CategoryBusiness      DiscussionCategory = "business"
	CategoryEntertainment DiscussionCategory = "entertainment"
	CategorySports        DiscussionCategory = "sports"
	CategoryPolitics      DiscussionCategory = "politics"
	CategoryOther         DiscussionCategory = "other"
)

func (c DiscussionCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryTech, CategoryBusiness, CategoryEntertainment,
		CategorySports, CategoryPolitics, CategoryOther:
		return true
	}
	return false
}

const (
	DefaultMaxParticipants = 50
	MinMaxParticipants     = 2
	MaxMaxParticipants     = 500
)

type Discussion struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Creator           UserSummary         `json:"creator"`
	Participants      []UserSummary       `json:"participants"`
	ParticipantsCount int                 `json:"participantsCount"`
	MaxParticipants   int                 `json:"maxParticipants"`
	Category          DiscussionCategory  `json:"category"`
	Tags              []string            `json:"tags"`
	IsActive          bool                `json:"isActive"`
	Messages          []DiscussionMessage `json:"messages,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

func (d Discussion) HasParticipant(userID string) bool {
	for _, p := range d.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

type NewDiscussion struct {
	Title           string
	Description     string
	CreatorID       string
	MaxParticipants int
	Category        DiscussionCategory
	Tags            []string
}

type DiscussionMessage struct {
	ID           string      `json:"id"`
	DiscussionID string      `json:"discussionId"`
	Sender       UserSummary `json:"sender"`
	Content      string      `json:"content"`
	Timestamp    time.Time   `json:"timestamp"`
	Edited       bool        `json:"edited"`
	EditedAt     *time.Time  `json:"editedAt,omitempty"`
}

type DiscussionFilter struct {
	Category  DiscussionCategory
	Search    string
	CreatorOf string
	MemberOf  string
	Page      int
	Limit     int
}

type DiscussionPage struct {
	Discussions []Discussion `json:"discussions"`
	Total       int          `json:"total"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
}

// DiscussionView is a room as seen by one user.
type DiscussionView struct {
	Discussion
	IsParticipant bool `json:"isParticipant"`
}

// CheckJoin validates a join against the room state observed under lock.
func CheckJoin(isActive, isParticipant bool, participants, maxParticipants int) error {
	switch {
	case !isActive:
		return Decline(ErrValidation, "This discussion is no longer active")
	case isParticipant:
		return Decline(ErrConflict, "You are already a participant in this discussion")
	case participants >= maxParticipants:
		return Decline(ErrConflict, "This discussion has reached its maximum number of participants")
	}
	return nil
}
