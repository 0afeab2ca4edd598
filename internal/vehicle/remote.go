package vehicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
)

const enquiryPath = "/vehicle-enquiry/v1/vehicles"

// RemoteResolver queries a DVLA-style vehicle enquiry API.
type RemoteResolver struct {
	hc      *http.Client
	baseURL string
	apiKey  string
}

func NewRemoteResolver(cfg config.RegistryConfig) *RemoteResolver {
	return &RemoteResolver{
		hc:      &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type enquiryRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

type enquiryResponse struct {
	RegistrationNumber string `json:"registrationNumber"`
	Make               string `json:"make"`
	Model              string `json:"model"`
	YearOfManufacture  int    `json:"yearOfManufacture"`
	EngineCapacity     int    `json:"engineCapacity"`
	FuelType           string `json:"fuelType"`
	Colour             string `json:"colour"`
}

type enquiryError struct {
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (r *RemoteResolver) Lookup(ctx context.Context, registration string) (domain.VehicleAttributes, error) {
	reg := domain.NormalizeRegistration(registration)
	if reg == "" {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: empty registration", domain.ErrLookupFailed)
	}
	if r.apiKey == "" {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: registry api key not configured", domain.ErrLookupFailed)
	}

	payload, err := json.Marshal(enquiryRequest{RegistrationNumber: reg})
	if err != nil {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: %v", domain.ErrLookupFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+enquiryPath, bytes.NewReader(payload))
	if err != nil {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: %v", domain.ErrLookupFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", r.apiKey)

	resp, err := r.hc.Do(req)
	if err != nil {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: %v", domain.ErrLookupFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: read body: %v", domain.ErrLookupFailed, err)
	}

	if resp.StatusCode >= 400 {
		var e enquiryError
		if json.Unmarshal(body, &e) == nil && len(e.Errors) > 0 {
			return domain.VehicleAttributes{}, fmt.Errorf("%w: %s (status=%d)", domain.ErrLookupFailed, firstNonEmpty(e.Errors[0].Detail, e.Errors[0].Title), resp.StatusCode)
		}
		return domain.VehicleAttributes{}, fmt.Errorf("%w: registry status %d", domain.ErrLookupFailed, resp.StatusCode)
	}

	var out enquiryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: malformed response: %v", domain.ErrLookupFailed, err)
	}
	if strings.TrimSpace(out.Make) == "" {
		return domain.VehicleAttributes{}, fmt.Errorf("%w: response has no make", domain.ErrLookupFailed)
	}

	return domain.VehicleAttributes{
		Registration:   reg,
		Make:           strings.ToUpper(strings.TrimSpace(out.Make)),
		Model:          strings.ToUpper(strings.TrimSpace(out.Model)),
		Year:           out.YearOfManufacture,
		EngineCapacity: out.EngineCapacity,
		FuelType:       domain.ParseFuelType(out.FuelType),
		Colour:         strings.ToUpper(strings.TrimSpace(out.Colour)),
	}, nil
}

// WithTimeout bounds a single lookup regardless of the caller's deadline.
func WithTimeout(next Lookup, timeout time.Duration) Lookup {
	if timeout <= 0 {
		return next
	}
	return timeoutLookup{next: next, timeout: timeout}
}

type timeoutLookup struct {
	next    Lookup
	timeout time.Duration
}

func (t timeoutLookup) Lookup(ctx context.Context, registration string) (domain.VehicleAttributes, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Lookup(ctx, registration)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
