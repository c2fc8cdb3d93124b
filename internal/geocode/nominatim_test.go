package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/eventflow/internal/errs"
)

func TestFormatAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Rua Dom Pedro II, Porto Velho - Rondônia, Brasil",
		FormatAddress(Placemark{Street: "Rua Dom Pedro II", City: "Porto Velho", Region: "Rondônia", Country: "Brasil"}))
	assert.Equal(t, ",  - , Brasil", FormatAddress(Placemark{Country: "Brasil"}))
}

func TestReverse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "-8.76", r.URL.Query().Get("lat"))
		assert.Equal(t, "-63.899", r.URL.Query().Get("lon"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "eventflow-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "pt-BR", r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "Rua Dom Pedro II, Centro, Porto Velho",
			"address": {"road": "Rua Dom Pedro II", "suburb": "Centro", "town": "Porto Velho",
				"state": "Rondônia", "country": "Brasil", "postcode": "76801-000"}
		}`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL+"/", "eventflow-test", time.Second, nil)
	p, err := n.Reverse(context.Background(), -8.76, -63.899)
	require.NoError(t, err)
	assert.Equal(t, "Rua Dom Pedro II", p.Street)
	assert.Equal(t, "Porto Velho", p.City, "town is used when city is absent")
	assert.Equal(t, "Centro", p.District)
	assert.Equal(t, "76801-000", p.PostalCode)

	addr, err := n.Address(context.Background(), -8.76, -63.899)
	require.NoError(t, err)
	assert.Equal(t, "Rua Dom Pedro II, Porto Velho - Rondônia, Brasil", addr)
}

func TestReverse_Errors(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer srv.Close()
	n := NewNominatim(srv.URL, "ua", time.Second, nil)

	_, err := n.Reverse(context.Background(), 0, 0)
	require.ErrorIs(t, err, ErrNoResult)

	status.Store(http.StatusForbidden)
	_, err = n.Reverse(context.Background(), 0, 0)
	require.ErrorIs(t, err, errs.ErrForbidden)

	srv.Close()
	_, err = n.Reverse(context.Background(), 0, 0)
	require.ErrorIs(t, err, errs.ErrNetwork)
}
