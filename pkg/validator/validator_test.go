package validator

import (
	"errors"
	"testing"
	"time"

	"shareit/pkg/logger"
	"shareit/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return NewWithClock(logger.Discard(), func() time.Time { return fixedNow })
}

func ptr[T any](v T) *T { return &v }

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	var fields []string
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestUserInput(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name   string
		input  model.UserInput
		fields []string
	}{
		{name: "valid", input: model.UserInput{Name: "Ann", Email: "ann@mail.com"}},
		{name: "blank name", input: model.UserInput{Name: "   ", Email: "ann@mail.com"}, fields: []string{"name"}},
		{name: "missing email", input: model.UserInput{Name: "Ann"}, fields: []string{"email"}},
		{name: "malformed email", input: model.UserInput{Name: "Ann", Email: "ann.mail.com"}, fields: []string{"email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldsOf(t, err))
		})
	}
}

func TestItemInput(t *testing.T) {
	v := newTestValidator()

	err := v.Struct(&model.ItemInput{Name: "Drill", Description: "Cordless"})
	assert.Equal(t, []string{"available"}, fieldsOf(t, err))

	err = v.Struct(&model.ItemInput{Name: "", Description: "\t", Available: ptr(false)})
	assert.ElementsMatch(t, []string{"name", "description"}, fieldsOf(t, err))

	assert.NoError(t, v.Struct(&model.ItemInput{Name: "Drill", Description: "Cordless", Available: ptr(false)}))
}

func TestBookingInput(t *testing.T) {
	v := newTestValidator()
	future := fixedNow.Add(time.Hour)
	past := fixedNow.Add(-time.Hour)

	tests := []struct {
		name   string
		input  model.BookingInput
		fields []string
	}{
		{name: "valid", input: model.BookingInput{ItemID: ptr(int64(1)), Start: ptr(future), End: ptr(future.Add(time.Hour))}},
		{name: "end before start is not a shape error", input: model.BookingInput{ItemID: ptr(int64(1)), Start: ptr(future.Add(time.Hour)), End: ptr(future)}},
		{name: "missing item", input: model.BookingInput{Start: ptr(future), End: ptr(future)}, fields: []string{"item_id"}},
		{name: "start in past", input: model.BookingInput{ItemID: ptr(int64(1)), Start: ptr(past), End: ptr(future)}, fields: []string{"start"}},
		{name: "start equals now", input: model.BookingInput{ItemID: ptr(int64(1)), Start: ptr(fixedNow), End: ptr(future)}, fields: []string{"start"}},
		{name: "missing dates", input: model.BookingInput{ItemID: ptr(int64(1))}, fields: []string{"start", "end"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.fields, fieldsOf(t, err))
		})
	}
}

func TestUserUpdate_BlankIsAllowed(t *testing.T) {
	v := newTestValidator()
	assert.NoError(t, v.Struct(&model.UserUpdate{}))
	assert.Equal(t, []string{"email"}, fieldsOf(t, v.Struct(&model.UserUpdate{Email: "nope"})))
}

func TestVar(t *testing.T) {
	v := newTestValidator()
	assert.NoError(t, v.Var("size", 10, "gt=0"))

	err := v.Var("from", -1, "gte=0")
	require.Error(t, err)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "from", verrs[0].Field)
	assert.Equal(t, "from must be greater than or equal to 0", verrs[0].Message)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}
	assert.Equal(t, "validation failed: 2 error(s): [a: bad; b: worse]", errs.Error())
	assert.Equal(t, map[string]any{"a": "bad", "b": "worse"}, errs.Fields())
}
