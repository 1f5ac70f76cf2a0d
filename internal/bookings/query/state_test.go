package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func booking(id int64, startOffset, endOffset time.Duration, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ID:     id,
		Start:  now.Add(startOffset),
		End:    now.Add(endOffset),
		ItemID: 1,
		Status: status,
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    State
		wantErr string
	}{
		{raw: "", want: StateAll},
		{raw: "ALL", want: StateAll},
		{raw: "CURRENT", want: StateCurrent},
		{raw: "REJECTED", want: StateRejected},
		{raw: "Frobnicate", wantErr: "Unknown state: Frobnicate"},
		{raw: "waiting", wantErr: "Unknown state: waiting"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeBadRequest))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	current := booking(1, -time.Hour, time.Hour, model.StatusApproved)
	startsNow := booking(2, 0, time.Hour, model.StatusApproved)
	endsNow := booking(3, -time.Hour, 0, model.StatusApproved)
	past := booking(4, -3*time.Hour, -2*time.Hour, model.StatusApproved)
	future := booking(5, time.Hour, 2*time.Hour, model.StatusWaiting)
	rejected := booking(6, 2*time.Hour, 3*time.Hour, model.StatusRejected)

	tests := []struct {
		state State
		want  []*model.Booking
	}{
		{state: StateCurrent, want: []*model.Booking{current, startsNow}},
		{state: StatePast, want: []*model.Booking{past}},
		{state: StateFuture, want: []*model.Booking{future, rejected}},
		{state: StateWaiting, want: []*model.Booking{future}},
		{state: StateRejected, want: []*model.Booking{rejected}},
		{state: StateAll, want: []*model.Booking{current, startsNow, endsNow, past, future, rejected}},
	}

	all := []*model.Booking{current, startsNow, endsNow, past, future, rejected}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			f := NewFilter(tt.state, now)
			var got []*model.Booking
			for _, b := range all {
				if f.Matches(b) {
					got = append(got, b)
				}
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

// Every booking in ALL lands in at least one bucket and ALL holds no
// duplicates, for snapshots without a booking ending exactly at now.
func TestFilter_AllCoversPartitions(t *testing.T) {
	var all []*model.Booking
	id := int64(1)
	for _, start := range []time.Duration{-5 * time.Hour, -time.Hour, 0, time.Hour} {
		for _, length := range []time.Duration{30 * time.Minute, 2 * time.Hour, 10 * time.Hour} {
			for _, status := range []model.BookingStatus{model.StatusWaiting, model.StatusApproved, model.StatusRejected} {
				if start+length == 0 {
					continue
				}
				all = append(all, booking(id, start, start+length, status))
				id++
			}
		}
	}

	page := model.Page{From: 0, Size: len(all) + 1}
	union := map[int64]bool{}
	for _, s := range []State{StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected} {
		for _, b := range NewFilter(s, now).Apply(all, page) {
			union[b.ID] = true
		}
	}

	everything := NewFilter(StateAll, now).Apply(all, page)
	seen := map[int64]bool{}
	for _, b := range everything {
		assert.False(t, seen[b.ID], "duplicate id %d", b.ID)
		seen[b.ID] = true
	}
	assert.Equal(t, len(union), len(everything))
}

func TestFilter_ApplySortsAndPages(t *testing.T) {
	a := booking(1, time.Hour, 2*time.Hour, model.StatusWaiting)
	b := booking(2, 3*time.Hour, 4*time.Hour, model.StatusWaiting)
	c := booking(3, time.Hour, 2*time.Hour, model.StatusWaiting)
	all := []*model.Booking{a, b, c}

	f := NewFilter(StateAll, now)
	assert.Equal(t, []*model.Booking{b, c, a}, f.Apply(all, model.Page{From: 0, Size: 10}))
	assert.Equal(t, []*model.Booking{a}, f.Apply(all, model.Page{From: 2, Size: 2}))
	assert.Equal(t, []*model.Booking{b, c}, f.Apply(all, model.Page{From: 1, Size: 2}))
}

func TestStateTag(t *testing.T) {
	assert.Equal(t, "omitempty,oneof=ALL CURRENT PAST FUTURE WAITING REJECTED", StateTag())
}
