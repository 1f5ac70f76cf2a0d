package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBooking_Overlaps(t *testing.T) {
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return base.Add(time.Duration(n) * time.Hour) }
	existing := &Booking{Start: h(10), End: h(20)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "identical interval", start: h(10), end: h(20), want: true},
		{name: "start inside", start: h(15), end: h(25), want: true},
		{name: "end inside", start: h(5), end: h(15), want: true},
		{name: "contains existing", start: h(5), end: h(25), want: true},
		{name: "inside existing", start: h(12), end: h(18), want: true},
		{name: "same start", start: h(10), end: h(12), want: true},
		{name: "touching before", start: h(5), end: h(10), want: false},
		{name: "touching after", start: h(20), end: h(25), want: false},
		{name: "fully before", start: h(1), end: h(2), want: false},
		{name: "fully after", start: h(21), end: h(22), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existing.Overlaps(tt.start, tt.end))
			other := &Booking{Start: tt.start, End: tt.end}
			assert.Equal(t, tt.want, other.Overlaps(existing.Start, existing.End), "overlap must be symmetric")
		})
	}
}

func TestPage(t *testing.T) {
	tests := []struct {
		page  Page
		index int
		skip  int64
	}{
		{page: Page{From: 0, Size: 10}, index: 0, skip: 0},
		{page: Page{From: 9, Size: 10}, index: 0, skip: 0},
		{page: Page{From: 10, Size: 10}, index: 1, skip: 10},
		{page: Page{From: 25, Size: 10}, index: 2, skip: 20},
		{page: Page{From: 3, Size: 1}, index: 3, skip: 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.index, tt.page.Index(), "%+v", tt.page)
		assert.Equal(t, tt.skip, tt.page.Skip(), "%+v", tt.page)
	}
}

func TestSlice(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Slice(all, Page{From: 0, Size: 2}))
	assert.Equal(t, []int{3, 4}, Slice(all, Page{From: 3, Size: 2}))
	assert.Equal(t, []int{5}, Slice(all, Page{From: 4, Size: 2}))
	assert.Empty(t, Slice(all, Page{From: 10, Size: 2}))
}

func TestNewRequestView_StampsRequestID(t *testing.T) {
	req := &Request{ID: 4, Description: "need a ladder"}
	view := NewRequestView(req, []*Item{{ID: 1, Name: "Ladder", OwnerID: 9, Available: true}})

	assert.Len(t, view.Items, 1)
	assert.EqualValues(t, 4, view.Items[0].RequestID)
	assert.EqualValues(t, 9, view.Items[0].OwnerID)
}

func TestNewBookingView_ToleratesMissingRefs(t *testing.T) {
	b := &Booking{ID: 1, ItemID: 2, BookerID: 3, Status: StatusWaiting}
	view := NewBookingView(b, nil, &User{ID: 3, Name: "Booker"})

	assert.EqualValues(t, 2, view.Item.ID)
	assert.Empty(t, view.Item.Name)
	assert.Equal(t, "Booker", view.Booker.Name)
}
