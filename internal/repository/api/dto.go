package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/kirinyoku/tix-client/internal/domain"
	"github.com/shopspring/decimal"
)

// userDTO is the embedded user projection. The server sends it either as an
// object or, when not populated, as a bare id string.
type userDTO struct {
	ID    string          `json:"_id"`
	AltID string          `json:"id"`
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role"`
}

func (u *userDTO) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &u.ID)
	}
	type plain userDTO
	return json.Unmarshal(b, (*plain)(u))
}

func (u *userDTO) id() string {
	if u == nil {
		return ""
	}
	if u.ID != "" {
		return u.ID
	}
	return u.AltID
}

func (u *userDTO) ref() *domain.UserRef {
	if u == nil {
		return nil
	}
	return &domain.UserRef{ID: u.id(), Email: u.Email, Role: u.Role}
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, ok := parseTime(*s)
	if !ok {
		return nil
	}
	return &t
}

type eventDTO struct {
	ID               string           `json:"_id"`
	Title            string           `json:"title"`
	ImageURL         string           `json:"imageUrl"`
	Genre            string           `json:"genre"`
	Country          string           `json:"country"`
	Details          string           `json:"details"`
	Price            decimal.Decimal  `json:"price"`
	EventDate        string           `json:"eventDate"`
	EventTime        string           `json:"eventTime"`
	Venue            string           `json:"venue"`
	Location         string           `json:"location"`
	TotalTickets     int              `json:"totalTickets"`
	AvailableTickets int              `json:"availableTickets"`
	PreviousPrice    *decimal.Decimal `json:"previousPrice"`
	PriceChangedAt   *string          `json:"priceChangedAt"`
	Owner            *userDTO         `json:"owner"`
	IsDeleted        bool             `json:"isDeleted"`
	DeletedAt        *string          `json:"deletedAt"`
	DeletedBy        *userDTO         `json:"deletedBy"`
	CreatedAt        string           `json:"createdAt"`
	UpdatedAt        string           `json:"updatedAt"`
	RatingAvg        *float64         `json:"ratingAvg"`
	RatingCount      *int             `json:"ratingCount"`
}

func mapEvent(dto eventDTO, now time.Time) domain.Event {
	created, ok := parseTime(dto.CreatedAt)
	if !ok {
		created = now
	}

	e := domain.Event{
		ID:               dto.ID,
		OwnerID:          dto.Owner.id(),
		Owner:            dto.Owner.ref(),
		Title:            dto.Title,
		ImageURL:         dto.ImageURL,
		Genre:            dto.Genre,
		Country:          dto.Country,
		Details:          dto.Details,
		Venue:            dto.Venue,
		Location:         dto.Location,
		EventDate:        dto.EventDate,
		EventTime:        dto.EventTime,
		Price:            dto.Price,
		PreviousPrice:    dto.PreviousPrice,
		PriceChangedAt:   parseTimePtr(dto.PriceChangedAt),
		TotalTickets:     dto.TotalTickets,
		AvailableTickets: dto.AvailableTickets,
		IsDeleted:        dto.IsDeleted,
		DeletedAt:        parseTimePtr(dto.DeletedAt),
		DeletedBy:        dto.DeletedBy.ref(),
		CreatedOn:        created,
		CreatedAt:        dto.CreatedAt,
		UpdatedAt:        dto.UpdatedAt,
	}

	if dto.RatingAvg != nil {
		e.RatingAvg = *dto.RatingAvg
	}
	if dto.RatingCount != nil {
		e.RatingCount = *dto.RatingCount
	}

	return e
}

type eventHistoryDTO struct {
	ID        string                    `json:"_id"`
	EventID   string                    `json:"eventId"`
	UserID    *userDTO                  `json:"userId"`
	Action    domain.EventHistoryAction `json:"action"`
	Before    json.RawMessage           `json:"before"`
	After     json.RawMessage           `json:"after"`
	CreatedAt string                    `json:"createdAt"`
}

func nonNullRaw(r json.RawMessage) json.RawMessage {
	if len(r) == 0 || bytes.Equal(r, []byte("null")) {
		return nil
	}
	return r
}

func mapEventHistory(dto eventHistoryDTO) domain.EventHistoryEntry {
	created, _ := parseTime(dto.CreatedAt)
	return domain.EventHistoryEntry{
		ID:        dto.ID,
		EventID:   dto.EventID,
		User:      dto.UserID.ref(),
		Action:    dto.Action,
		Before:    nonNullRaw(dto.Before),
		After:     nonNullRaw(dto.After),
		CreatedAt: created,
	}
}

type orderItemDTO struct {
	EventID   string           `json:"eventId"`
	Title     string           `json:"title"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Quantity  *int             `json:"quantity"`
}

func mapOrderItem(dto orderItemDTO) domain.OrderItem {
	qty := 1
	if dto.Quantity != nil {
		qty = *dto.Quantity
	}
	price := decimal.Zero
	if dto.UnitPrice != nil {
		price = *dto.UnitPrice
	}
	return domain.NewOrderItem(dto.EventID, dto.Title, price, qty)
}

type orderDTO struct {
	ID         string             `json:"_id"`
	UserID     *userDTO           `json:"userId"`
	Items      []orderItemDTO     `json:"items"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	Status     domain.OrderStatus `json:"status"`
	CreatedAt  string             `json:"createdAt"`
	UpdatedAt  string             `json:"updatedAt"`
}

func mapOrder(dto orderDTO, now time.Time) domain.Order {
	created, ok := parseTime(dto.CreatedAt)
	if !ok {
		created = now
	}

	items := make([]domain.OrderItem, 0, len(dto.Items))
	for _, it := range dto.Items {
		items = append(items, mapOrderItem(it))
	}

	o := domain.Order{
		ID:         dto.ID,
		UserID:     dto.UserID.id(),
		Items:      items,
		TotalPrice: dto.TotalPrice,
		Status:     dto.Status,
		CreatedAt:  created,
	}

	if dto.UserID != nil {
		o.UserEmail = dto.UserID.Email
		o.UserRole = dto.UserID.Role
	}

	if t, ok := parseTime(dto.UpdatedAt); ok {
		o.UpdatedAt = &t
	}

	return o
}

type orderHistoryDTO struct {
	ID         string                    `json:"_id"`
	OrderID    string                    `json:"orderId"`
	UserID     *userDTO                  `json:"userId"`
	Action     domain.OrderHistoryAction `json:"action"`
	FromStatus *domain.OrderStatus       `json:"fromStatus"`
	ToStatus   *domain.OrderStatus       `json:"toStatus"`
	Before     json.RawMessage           `json:"before"`
	After      json.RawMessage           `json:"after"`
	CreatedAt  string                    `json:"createdAt"`
}

func mapHistorySnapshot(raw json.RawMessage) *domain.OrderHistorySnapshot {
	if nonNullRaw(raw) == nil {
		return nil
	}

	var snap struct {
		Items []orderItemDTO `json:"items"`
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil
	}

	out := &domain.OrderHistorySnapshot{Items: make([]domain.OrderHistoryItem, 0, len(snap.Items))}
	for _, it := range snap.Items {
		m := mapOrderItem(it)
		out.Items = append(out.Items, domain.OrderHistoryItem{
			EventID:   m.EventID,
			Title:     m.Title,
			UnitPrice: m.UnitPrice,
			Quantity:  m.Quantity,
		})
	}
	return out
}

func mapOrderHistory(dto orderHistoryDTO) domain.OrderHistoryEntry {
	created, _ := parseTime(dto.CreatedAt)
	return domain.OrderHistoryEntry{
		ID:         dto.ID,
		OrderID:    dto.OrderID,
		User:       dto.UserID.ref(),
		Action:     dto.Action,
		FromStatus: dto.FromStatus,
		ToStatus:   dto.ToStatus,
		Before:     mapHistorySnapshot(dto.Before),
		After:      mapHistorySnapshot(dto.After),
		CreatedAt:  created,
	}
}

type commentDTO struct {
	ID                 string   `json:"_id"`
	EventID            string   `json:"eventId"`
	Content            *string  `json:"content"`
	Text               *string  `json:"text"`
	CreatedAt          string   `json:"createdAt"`
	UserID             *userDTO `json:"userId"`
	Likes              []string `json:"likes"`
	LikesCount         *int     `json:"likesCount"`
	LikedByCurrentUser *bool    `json:"likedByCurrentUser"`
	IsDeleted          *bool    `json:"isDeleted"`
	DeletedAt          *string  `json:"deletedAt"`
}

func mapComment(dto commentDTO, currentUserID string, now time.Time) domain.EventComment {
	created, ok := parseTime(dto.CreatedAt)
	if !ok {
		created = now
	}

	c := domain.EventComment{
		ID:        dto.ID,
		EventID:   dto.EventID,
		CreatedAt: created,
		User:      dto.UserID.ref(),
		DeletedAt: parseTimePtr(dto.DeletedAt),
	}

	switch {
	case dto.Text != nil:
		c.Text = *dto.Text
	case dto.Content != nil:
		c.Text = *dto.Content
	}

	if dto.LikesCount != nil {
		c.LikesCount = *dto.LikesCount
	} else {
		c.LikesCount = len(dto.Likes)
	}

	if dto.LikedByCurrentUser != nil {
		c.LikedByCurrentUser = *dto.LikedByCurrentUser
	} else if currentUserID != "" {
		for _, id := range dto.Likes {
			if id == currentUserID {
				c.LikedByCurrentUser = true
				break
			}
		}
	}

	if dto.IsDeleted != nil {
		c.IsDeleted = *dto.IsDeleted
	}

	return c
}

type userRecordDTO struct {
	ID        string          `json:"_id"`
	AltID     string          `json:"id"`
	Email     string          `json:"email"`
	Role      domain.UserRole `json:"role"`
	IsDeleted *bool           `json:"isDeleted"`
	DeletedAt *string         `json:"deletedAt"`
	CreatedAt *string         `json:"createdAt"`
	UpdatedAt *string         `json:"updatedAt"`
}

func mapUser(dto userRecordDTO) domain.AdminUser {
	id := dto.ID
	if id == "" {
		id = dto.AltID
	}
	u := domain.AdminUser{
		ID:        id,
		Email:     dto.Email,
		Role:      dto.Role,
		DeletedAt: parseTimePtr(dto.DeletedAt),
		CreatedAt: parseTimePtr(dto.CreatedAt),
		UpdatedAt: parseTimePtr(dto.UpdatedAt),
	}
	if dto.IsDeleted != nil {
		u.IsDeleted = *dto.IsDeleted
	}
	return u
}

type authDataDTO struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func mapAuth(dto authDataDTO) domain.AuthUser {
	return domain.AuthUser{
		ID:          dto.User.id(),
		Email:       dto.User.Email,
		AccessToken: dto.Token,
		Role:        dto.User.Role,
	}
}

// eventPayload sends the price as a JSON number.
type eventPayload struct {
	Title        string      `json:"title"`
	ImageURL     string      `json:"imageUrl"`
	Genre        string      `json:"genre"`
	Country      string      `json:"country"`
	Details      string      `json:"details"`
	Price        json.Number `json:"price"`
	EventDate    string      `json:"eventDate"`
	EventTime    string      `json:"eventTime"`
	Venue        string      `json:"venue"`
	Location     string      `json:"location"`
	TotalTickets int         `json:"totalTickets"`
}

func newEventPayload(in domain.BaseEvent) eventPayload {
	return eventPayload{
		Title:        in.Title,
		ImageURL:     in.ImageURL,
		Genre:        in.Genre,
		Country:      in.Country,
		Details:      in.Details,
		Price:        json.Number(in.Price.String()),
		EventDate:    in.EventDate,
		EventTime:    in.EventTime,
		Venue:        in.Venue,
		Location:     in.Location,
		TotalTickets: in.TotalTickets,
	}
}
