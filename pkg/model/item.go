package model

import "time"

type Item struct {
	ID          int64  `json:"id" bson:"_id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
	Available   bool   `json:"available" bson:"available"`
	OwnerID     int64  `json:"owner_id" bson:"owner_id"`
	RequestID   *int64 `json:"request_id,omitempty" bson:"request_id,omitempty"`
}

type ItemInput struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	Description string `json:"description" validate:"notblank,max=2000"`
	Available   *bool  `json:"available" validate:"required"`
	RequestID   *int64 `json:"request_id,omitempty" validate:"omitempty,gt=0"`
}

// ItemUpdate is a partial update; blank strings and a nil Available keep the stored value.
type ItemUpdate struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=255"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Available   *bool  `json:"available,omitempty"`
}

type ItemRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookingRef is the short booking form shown on an owner's item view.
type BookingRef struct {
	ID       int64     `json:"id"`
	BookerID int64     `json:"booker_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type ItemView struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Available   bool           `json:"available"`
	RequestID   *int64         `json:"request_id,omitempty"`
	LastBooking *BookingRef    `json:"last_booking"`
	NextBooking *BookingRef    `json:"next_booking"`
	Comments    []*CommentView `json:"comments"`
}

func NewItemView(item *Item) *ItemView {
	return &ItemView{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Available:   item.Available,
		RequestID:   item.RequestID,
		Comments:    []*CommentView{},
	}
}

func NewBookingRef(b *Booking) *BookingRef {
	if b == nil {
		return nil
	}
	return &BookingRef{ID: b.ID, BookerID: b.BookerID, Start: b.Start, End: b.End}
}
