package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event is the client-side view of a ticketed event as returned by the remote API.
type Event struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"ownerId"`
	Owner            *UserRef         `json:"owner,omitempty"`
	Title            string           `json:"title"`
	ImageURL         string           `json:"imageUrl"`
	Genre            string           `json:"genre"`
	Country          string           `json:"country"`
	Details          string           `json:"details"`
	Venue            string           `json:"venue"`
	Location         string           `json:"location"`
	EventDate        string           `json:"eventDate"`
	EventTime        string           `json:"eventTime"`
	Price            decimal.Decimal  `json:"price"`
	PreviousPrice    *decimal.Decimal `json:"previousPrice,omitempty"`
	PriceChangedAt   *time.Time       `json:"priceChangedAt,omitempty"`
	TotalTickets     int              `json:"totalTickets"`
	AvailableTickets int              `json:"availableTickets"`
	IsDeleted        bool             `json:"isDeleted"`
	DeletedAt        *time.Time       `json:"deletedAt,omitempty"`
	DeletedBy        *UserRef         `json:"deletedBy,omitempty"`
	RatingAvg        float64          `json:"ratingAvg"`
	RatingCount      int              `json:"ratingCount"`
	CreatedOn        time.Time        `json:"createdOn"`
	CreatedAt        string           `json:"createdAt,omitempty"`
	UpdatedAt        string           `json:"updatedAt,omitempty"`
}

// BaseEvent carries the editable fields sent on create and update.
type BaseEvent struct {
	Title        string          `json:"title"`
	ImageURL     string          `json:"imageUrl"`
	Genre        string          `json:"genre"`
	Country      string          `json:"country"`
	Details      string          `json:"details"`
	Price        decimal.Decimal `json:"price"`
	EventDate    string          `json:"eventDate"`
	EventTime    string          `json:"eventTime"`
	Venue        string          `json:"venue"`
	Location     string          `json:"location"`
	TotalTickets int             `json:"totalTickets"`
}

func (e Event) IsSoldOut() bool { return e.AvailableTickets == 0 }

// StartsAt combines EventDate and EventTime. ok is false when no date is set
// or it cannot be parsed.
func (e Event) StartsAt() (time.Time, bool) {
	d := strings.TrimSpace(e.EventDate)
	if d == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, d); err == nil {
		return t, true
	}

	day, err := time.ParseInLocation("2006-01-02", d, time.Local)
	if err != nil {
		return time.Time{}, false
	}

	if clock, err := time.Parse("15:04", strings.TrimSpace(e.EventTime)); err == nil {
		day = day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	}

	return day, true
}

// IsUpcoming reports whether the event starts after now. Events without a
// parsable date count as upcoming.
func (e Event) IsUpcoming(now time.Time) bool {
	t, ok := e.StartsAt()
	return !ok || t.After(now)
}

// IsPast reports whether the event has a date at or before now.
func (e Event) IsPast(now time.Time) bool {
	t, ok := e.StartsAt()
	return ok && !t.After(now)
}

// StockRatio is AvailableTickets/TotalTickets, or 0 when capacity is unknown.
func (e Event) StockRatio() float64 {
	if e.TotalTickets <= 0 {
		return 0
	}
	return float64(e.AvailableTickets) / float64(e.TotalTickets)
}

// Clone returns a copy that shares no pointers with e.
func (e Event) Clone() Event {
	cp := e
	if e.Owner != nil {
		o := *e.Owner
		cp.Owner = &o
	}
	if e.PreviousPrice != nil {
		p := *e.PreviousPrice
		cp.PreviousPrice = &p
	}
	if e.PriceChangedAt != nil {
		t := *e.PriceChangedAt
		cp.PriceChangedAt = &t
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		cp.DeletedAt = &t
	}
	if e.DeletedBy != nil {
		u := *e.DeletedBy
		cp.DeletedBy = &u
	}
	return cp
}
