package query

import (
	"fmt"
	"shareit/pkg/model"
	"sort"
	"strings"
	"time"

	apperrors "shareit/pkg/errors"
)

// State selects a temporal or status bucket of bookings.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

var States = []State{StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected}

// Parse maps the state query parameter; empty means ALL. Matching is exact,
// "waiting" is not a valid state.
func Parse(raw string) (State, error) {
	if raw == "" {
		return StateAll, nil
	}
	for _, s := range States {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", apperrors.BadRequest(fmt.Sprintf("Unknown state: %s", raw))
}

// StateTag is the validator tag the gateway uses for the same enum.
func StateTag() string {
	names := make([]string, len(States))
	for i, s := range States {
		names[i] = string(s)
	}
	return "omitempty,oneof=" + strings.Join(names, " ")
}

type Role string

const (
	RoleBooker Role = "BOOKER"
	RoleOwner  Role = "OWNER"
)

// Filter is a state evaluated against a fixed instant. The repository
// compiles it to a store query; Matches is the same predicate in memory.
type Filter struct {
	State State
	Now   time.Time
}

func NewFilter(state State, now time.Time) Filter {
	return Filter{State: state, Now: now}
}

func (f Filter) Matches(b *model.Booking) bool {
	switch f.State {
	case StateCurrent:
		return !b.Start.After(f.Now) && b.End.After(f.Now)
	case StatePast:
		return b.End.Before(f.Now)
	case StateFuture:
		return b.Start.After(f.Now)
	case StateWaiting:
		return b.Status == model.StatusWaiting
	case StateRejected:
		return b.Status == model.StatusRejected
	default:
		return true
	}
}

// Apply filters, sorts and pages an in-memory set.
func (f Filter) Apply(bookings []*model.Booking, page model.Page) []*model.Booking {
	out := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	SortNewestFirst(out)
	return model.Slice(out, page)
}

// SortNewestFirst orders by start descending, ties by id descending.
func SortNewestFirst(bookings []*model.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].Start.After(bookings[j].Start)
		}
		return bookings[i].ID > bookings[j].ID
	})
}
