package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]error{
		http.StatusBadRequest:          ErrInvalidFields,
		http.StatusUnauthorized:        ErrUnauthorized,
		http.StatusForbidden:           ErrForbidden,
		http.StatusNotFound:            ErrNotFound,
		http.StatusInternalServerError: ErrServer,
		http.StatusConflict:            ErrServer,
	}
	for status, want := range cases {
		require.ErrorIs(t, FromStatus(status), want, "status %d", status)
	}
}

func TestAPIError_UnwrapsToSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create event: %w", &APIError{Status: http.StatusForbidden, Message: "nope"})
	require.ErrorIs(t, err, ErrForbidden)
	require.NotErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "backend: status 403: nope", apiErr.Error())
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("submit: %w", Validation("categoria", "Selecione uma categoria."))
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "categoria", ve.Field)
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := Network("GET /api/collections/events/records", inner)
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, inner)
	require.NoError(t, Network("x", nil))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Validation("nome", "Preencha o nome do evento."), "Preencha o nome do evento."},
		{&APIError{Status: 400}, MsgInvalidFields},
		{&APIError{Status: 403}, MsgForbidden},
		{&APIError{Status: 404}, MsgNotFound},
		{&APIError{Status: 401}, MsgUnauthorized},
		{&APIError{Status: 502}, MsgGeneric},
		{Network("op", errors.New("dial")), MsgNetwork},
		{fmt.Errorf("register: %w", ErrAlreadyExists), MsgAlreadyExists},
		{context.Canceled, MsgCanceled},
		{errors.New("boom"), MsgGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err), "err=%v", tc.err)
	}
}
