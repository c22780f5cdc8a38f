package domain

import "time"

type EventComment struct {
	ID                 string     `json:"id"`
	EventID            string     `json:"eventId"`
	Text               string     `json:"text"`
	CreatedAt          time.Time  `json:"createdAt"`
	User               *UserRef   `json:"user"`
	LikesCount         int        `json:"likesCount"`
	LikedByCurrentUser bool       `json:"likedByCurrentUser"`
	IsDeleted          bool       `json:"isDeleted"`
	DeletedAt          *time.Time `json:"deletedAt,omitempty"`
}

// AuthorID returns the commenting user's id, or "" for anonymized comments.
func (c EventComment) AuthorID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID
}

func (c EventComment) Clone() EventComment {
	cp := c
	if c.User != nil {
		u := *c.User
		cp.User = &u
	}
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return cp
}
