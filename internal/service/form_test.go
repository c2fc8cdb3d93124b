package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/eventflow/internal/errs"
)

func validForm(now time.Time) EventForm {
	f := NewEventForm(now)
	f.Name = "Festival"
	f.Description = "Música ao vivo"
	f.CategoryID = "cat1"
	f.LocationID = "loc1"
	f.Price = "20,00"
	return f
}

func TestValidate_FieldOrder(t *testing.T) {
	t.Parallel()
	now := time.Now()

	cases := []struct {
		mutate func(*EventForm)
		field  string
	}{
		{func(f *EventForm) { f.Name = " " }, "nome"},
		{func(f *EventForm) { f.Description = "" }, "descrição"},
		{func(f *EventForm) { f.CategoryID = "" }, "categoria"},
		{func(f *EventForm) { f.LocationID = "" }, "local"},
		{func(f *EventForm) { f.Price = "" }, "preço"},
		{func(f *EventForm) { f.Price = "vinte" }, "preço"},
		{func(f *EventForm) { f.Price = "-1" }, "preço"},
		{func(f *EventForm) { f.Price = "NaN" }, "preço"},
		{func(f *EventForm) { f.Price = "inf" }, "preço"},
		{func(f *EventForm) { f.Price = "1e3" }, "preço"},
		// the first missing field wins
		{func(f *EventForm) { f.LocationID = ""; f.Name = "" }, "nome"},
	}
	for _, tc := range cases {
		f := validForm(now)
		tc.mutate(&f)
		_, err := Validate(f)
		var ve *errs.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tc.field, ve.Field)
		assert.NotEmpty(t, ve.Message)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	t.Parallel()

	f := validForm(time.Now())
	a, errA := Validate(f)
	b, errB := Validate(f)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)

	f.CategoryID = ""
	_, errA = Validate(f)
	_, errB = Validate(f)
	assert.Equal(t, errA, errB)
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]float64{"20,00": 20, "20.5": 20.5, " 7 ": 7, "0": 0, "1,5": 1.5} {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "1.234,56", "-3", "+3", "NaN", "inf", "-Inf", "1e3", "0x1p4", "1_000", ".5", "5."} {
		_, err := ParsePrice(in)
		assert.Error(t, err, in)
	}
}

func TestBuildPayload_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := validForm(now)
	f.Date = time.Date(2025, 3, 7, 15, 45, 0, 0, time.UTC)
	f.StartAt = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	f.EndAt = time.Date(2025, 3, 7, 18, 30, 0, 0, time.UTC)

	v, err := Validate(f)
	require.NoError(t, err)
	assert.Equal(t, 20.0, v.Price())

	p := BuildPayload(v, now)
	get := func(name string) string {
		val, ok := p.Value(name)
		require.True(t, ok, name)
		return val
	}
	assert.Equal(t, "2025-03-07 00:00:00", get(FieldDate))
	assert.Equal(t, "09:00", get(FieldStartAt))
	assert.Equal(t, "18:30", get(FieldEndAt))
	assert.Equal(t, "20", get(FieldPrice))
	assert.Equal(t, "cat1", get(FieldCategory))
	assert.Equal(t, "loc1", get(FieldLocation))
	assert.Nil(t, p.File)

	names := make([]string, 0, len(p.Fields))
	for _, fl := range p.Fields {
		names = append(names, fl.Name)
	}
	assert.Equal(t, []string{FieldName, FieldDescription, FieldDate, FieldStartAt, FieldEndAt, FieldPrice, FieldCategory, FieldLocation}, names)
}

func TestBuildPayload_Image(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1741339200123).UTC()
	f := validForm(now)
	f.Image = &Image{Filename: "IMG_0001.PNG", Data: []byte{1, 2, 3}}
	v, err := Validate(f)
	require.NoError(t, err)

	p := BuildPayload(v, now)
	require.NotNil(t, p.File)
	assert.Equal(t, FieldThumbnail, p.File.Field)
	assert.Equal(t, "event_1741339200123.png", p.File.Filename)
	assert.Equal(t, "image/png", p.File.ContentType)
	assert.Equal(t, []byte{1, 2, 3}, p.File.Data)

	f.Image = &Image{Filename: "photo.heic", Data: []byte{1}}
	v, _ = Validate(f)
	assert.Equal(t, "image/heic", BuildPayload(v, now).File.ContentType)

	f.Image = &Image{Filename: "noext", Data: []byte{1}}
	v, _ = Validate(f)
	assert.Equal(t, "event_1741339200123.jpg", BuildPayload(v, now).File.Filename)

	f.Image = &Image{Filename: "empty.png"}
	v, _ = Validate(f)
	assert.Nil(t, BuildPayload(v, now).File)
}

func TestBuildPayload_ZeroTimesUseNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 7, 14, 5, 0, 0, time.UTC)
	f := EventForm{Name: "n", Description: "d", CategoryID: "c", LocationID: "l", Price: "1"}
	v, err := Validate(f)
	require.NoError(t, err)
	p := BuildPayload(v, now)

	date, _ := p.Value(FieldDate)
	start, _ := p.Value(FieldStartAt)
	assert.Equal(t, "2025-03-07 00:00:00", date)
	assert.Equal(t, "14:05", start)
}

func TestEventForm_Reset(t *testing.T) {
	t.Parallel()

	now := time.Now()
	f := validForm(now)
	f.Image = &Image{Filename: "a.png", Data: []byte{1}}
	f.Reset(now)
	assert.Equal(t, NewEventForm(now), f)
}
