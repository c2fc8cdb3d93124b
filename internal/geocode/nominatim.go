// Package geocode resolves map points to display addresses using an
// OpenStreetMap Nominatim endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/eventflow/internal/errs"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoResult is returned when the point has no address.
var ErrNoResult = errors.New("geocode: no result")

// Placemark is a reverse geocoding result.
type Placemark struct {
	Street      string
	Number      string
	District    string
	City        string
	Region      string
	Country     string
	PostalCode  string
	DisplayName string
}

// FormatAddress renders "street, city - region, country". Missing parts stay
// empty so the separators are always present.
func FormatAddress(p Placemark) string {
	return fmt.Sprintf("%s, %s - %s, %s", p.Street, p.City, p.Region, p.Country)
}

// Nominatim is a reverse geocoding client.
type Nominatim struct {
	base      string
	userAgent string
	language  string
	hc        *http.Client
	log       *zap.Logger
}

// NewNominatim constructs a client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration, log *zap.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Nominatim{
		base:      strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		language:  "pt-BR",
		hc:        &http.Client{Timeout: timeout},
		log:       log,
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		Road         string `json:"road"`
		Pedestrian   string `json:"pedestrian"`
		HouseNumber  string `json:"house_number"`
		Suburb       string `json:"suburb"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		State        string `json:"state"`
		Country      string `json:"country"`
		Postcode     string `json:"postcode"`
	} `json:"address"`
}

// Reverse looks up the address at lat/long.
func (n *Nominatim) Reverse(ctx context.Context, lat, long float64) (Placemark, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(long, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return Placemark{}, fmt.Errorf("geocode: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", n.language)
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	start := time.Now()
	resp, err := n.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Placemark{}, fmt.Errorf("geocode: %w", ctxErr)
		}
		return Placemark{}, errs.Network("geocode", err)
	}
	defer resp.Body.Close()
	n.log.Debug("reverse geocode", zap.Int("status", resp.StatusCode), zap.Duration("dur", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Placemark{}, fmt.Errorf("geocode: %w", &errs.APIError{Status: resp.StatusCode})
	}
	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Placemark{}, fmt.Errorf("geocode: decode: %w", err)
	}
	if body.Error != "" {
		return Placemark{}, fmt.Errorf("%w: %s", ErrNoResult, body.Error)
	}
	a := body.Address
	return Placemark{
		Street:      first(a.Road, a.Pedestrian),
		Number:      a.HouseNumber,
		District:    a.Suburb,
		City:        first(a.City, a.Town, a.Village, a.Municipality),
		Region:      a.State,
		Country:     a.Country,
		PostalCode:  a.Postcode,
		DisplayName: body.DisplayName,
	}, nil
}

// Address implements the location service's resolver.
func (n *Nominatim) Address(ctx context.Context, lat, long float64) (string, error) {
	p, err := n.Reverse(ctx, lat, long)
	if err != nil {
		return "", err
	}
	return FormatAddress(p), nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
