package model

import (
	"time"
)

type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
	StatusCanceled BookingStatus = "CANCELED"
)

type Booking struct {
	ID        int64         `json:"id" bson:"_id"`
	Start     time.Time     `json:"start" bson:"start"`
	End       time.Time     `json:"end" bson:"end"`
	ItemID    int64         `json:"item_id" bson:"item_id"`
	BookerID  int64         `json:"booker_id" bson:"booker_id"`
	Status    BookingStatus `json:"status" bson:"status"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

// Overlaps treats both intervals as half open, so a booking ending exactly
// when another starts does not overlap it.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && start.Before(b.End)
}

type BookingInput struct {
	ItemID *int64     `json:"item_id" validate:"required,gt=0"`
	Start  *time.Time `json:"start" validate:"required,future"`
	End    *time.Time `json:"end" validate:"required,future"`
}

type BookingView struct {
	ID     int64         `json:"id"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Status BookingStatus `json:"status"`
	Item   ItemRef       `json:"item"`
	Booker UserRef       `json:"booker"`
}

func NewBookingView(b *Booking, item *Item, booker *User) *BookingView {
	view := &BookingView{
		ID:     b.ID,
		Start:  b.Start,
		End:    b.End,
		Status: b.Status,
		Item:   ItemRef{ID: b.ItemID},
		Booker: UserRef{ID: b.BookerID},
	}
	if item != nil {
		view.Item.Name = item.Name
	}
	if booker != nil {
		view.Booker.Name = booker.Name
	}
	return view
}
