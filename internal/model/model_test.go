package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3wscott/contactbook/internal/model"
)

func TestValidatePhone(t *testing.T) {
	for _, phone := range []string{"1", "+1234", "0000", "+", "79251234567"} {
		assert.NoError(t, model.ValidatePhone(phone), phone)
	}

	tests := []struct {
		phone string
		want  error
	}{
		{"", model.ErrEmptyPhone},
		{"12a3", model.ErrNonDigitPhone},
		{"++12", model.ErrNonDigitPhone},
		{"12+3", model.ErrNonDigitPhone},
		{" 123", model.ErrNonDigitPhone},
		{"+7 925", model.ErrNonDigitPhone},
		{"١٢٣", model.ErrNonDigitPhone},
	}
	for _, tt := range tests {
		err := model.ValidatePhone(tt.phone)
		assert.ErrorIs(t, err, tt.want, "phone %q", tt.phone)
		assert.ErrorIs(t, err, model.ErrInvalidPhone, "phone %q", tt.phone)
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, model.ValidateName("Alice"))
	assert.NoError(t, model.ValidateName(" "))

	err := model.ValidateName("")
	assert.ErrorIs(t, err, model.ErrEmptyName)
	assert.ErrorIs(t, err, model.ErrInvalidName)

	for _, name := range []string{"Ann\nLee", "Ann\rLee", "Ann\r\n", "\n"} {
		err := model.ValidateName(name)
		assert.ErrorIs(t, err, model.ErrNameLineBreak, "name %q", name)
		assert.ErrorIs(t, err, model.ErrInvalidName, "name %q", name)
	}
}

func TestNewValidates(t *testing.T) {
	_, err := model.New("12a3", "Alice")
	require.ErrorIs(t, err, model.ErrNonDigitPhone)

	_, err = model.New("+1234", "")
	require.ErrorIs(t, err, model.ErrEmptyName)

	before := time.Now()
	c, err := model.New("+1234", "Alice", model.WithTitle(model.TitleMs))
	require.NoError(t, err)
	assert.Equal(t, "+1234", c.Phone)
	assert.Equal(t, "Alice", c.Name)
	assert.Equal(t, model.TitleMs, c.Title)
	assert.False(t, c.Created.Before(before))
}

func TestNewCapturesTimePerCall(t *testing.T) {
	first, err := model.New("1", "A")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := model.New("2", "B")
	require.NoError(t, err)
	assert.True(t, second.Created.After(first.Created))
}

func TestTrustedSkipsValidation(t *testing.T) {
	c := model.Trusted("not a phone", "", time.Time{})
	assert.Equal(t, "not a phone", c.Phone)
	assert.Empty(t, c.Name)
}

func TestContactRendering(t *testing.T) {
	created := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local)
	c, err := model.New("+1234", "Alice", model.CreatedAt(created))
	require.NoError(t, err)

	assert.Equal(t, "+1234;Alice;05.03.2024 07:08:09", c.Row(";"))
	assert.Equal(t, "+1234|Alice|05.03.2024 07:08:09", c.Row("|"))
	assert.Equal(t, "Alice +1234", c.String())
	assert.Equal(t, map[string]model.Entry{
		"+1234": {Phone: "+1234", Name: "Alice", Created: "05.03.2024 07:08:09"},
	}, c.JSONEntry())

	titled, err := model.New("+1234", "Alice", model.CreatedAt(created), model.WithTitle(model.TitleMs))
	require.NoError(t, err)
	assert.Equal(t, "Ms Alice +1234", titled.String())
	assert.False(t, strings.Contains(titled.Row(";"), "Ms"))
}

func TestEqualIgnoresNameAndTime(t *testing.T) {
	a := model.Trusted("+1", "Alice", time.Now())
	b := model.Trusted("+1", "Bob", time.Now().Add(time.Hour))
	c := model.Trusted("+2", "Alice", a.Created)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := model.ParseTimestamp("31.12.1999 23:59:58")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1999, time.December, 31, 23, 59, 58, 0, time.Local), ts)

	_, err = model.ParseTimestamp("1999-12-31")
	assert.Error(t, err)
}

func TestParseTitle(t *testing.T) {
	for raw, want := range map[string]model.Title{"": model.TitleNone, "mr": model.TitleMr, "Mr.": model.TitleMr, "MS": model.TitleMs} {
		got, err := model.ParseTitle(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := model.ParseTitle("Dr")
	assert.Error(t, err)
}
