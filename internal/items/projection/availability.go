// Package projection derives the last and next bookings an owner sees on an item.
package projection

import (
	"shareit/pkg/model"
	"time"
)

type Availability struct {
	Last *model.BookingRef
	Next *model.BookingRef
}

// Project picks, among non rejected bookings, the latest one that started
// at or before now and the earliest one starting after now. Equal starts
// resolve to the lower id.
func Project(bookings []*model.Booking, now time.Time) Availability {
	var last, next *model.Booking
	for _, b := range bookings {
		if b.Status == model.StatusRejected {
			continue
		}
		if !b.Start.After(now) {
			if last == nil || b.Start.After(last.Start) || (b.Start.Equal(last.Start) && b.ID < last.ID) {
				last = b
			}
			continue
		}
		if next == nil || b.Start.Before(next.Start) || (b.Start.Equal(next.Start) && b.ID < next.ID) {
			next = b
		}
	}
	return Availability{Last: model.NewBookingRef(last), Next: model.NewBookingRef(next)}
}

// ProjectAll groups bookings by item and projects each group. Items with
// no bookings are absent from the result.
func ProjectAll(bookings []*model.Booking, now time.Time) map[int64]Availability {
	byItem := make(map[int64][]*model.Booking)
	for _, b := range bookings {
		byItem[b.ItemID] = append(byItem[b.ItemID], b)
	}

	out := make(map[int64]Availability, len(byItem))
	for itemID, group := range byItem {
		out[itemID] = Project(group, now)
	}
	return out
}

// Apply copies the projection onto a view.
func (a Availability) Apply(view *model.ItemView) {
	view.LastBooking = a.Last
	view.NextBooking = a.Next
}
