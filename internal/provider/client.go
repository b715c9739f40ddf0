// Package provider implements the narrow query contract against the
// upstream scheduling provider: catalog lookups, date-range availability
// and appointment creation. The provider is the source of truth for
// scheduling; this client only displays and requests slots.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glowbook/bookingflow/pkg/logging"
)

const defaultTimeout = 20 * time.Second

// Client is an HTTP client for the scheduling provider API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	locationID string
	logger     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a scheduling provider client.
func NewClient(baseURL, apiKey, locationID string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiKey:     apiKey,
		locationID: locationID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCategories returns the service categories for this location.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.get(ctx, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// GetServices returns the services in a category. An empty categoryID
// returns every service.
func (c *Client) GetServices(ctx context.Context, categoryID string) ([]Service, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("categoryId", categoryID)
	}
	var out struct {
		Services []Service `json:"services"`
	}
	if err := c.get(ctx, "/services", params, &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}

// GetStaff returns staff members able to perform a service.
func (c *Client) GetStaff(ctx context.Context, serviceID string) ([]Staff, error) {
	params := url.Values{}
	params.Set("serviceId", serviceID)
	var out struct {
		Staff []Staff `json:"staff"`
	}
	if err := c.get(ctx, "/staff", params, &out); err != nil {
		return nil, err
	}
	return out.Staff, nil
}

// GetAddons returns the add-ons applicable to a service. An empty list is
// a normal answer, not an error.
func (c *Client) GetAddons(ctx context.Context, serviceID string) ([]Addon, error) {
	params := url.Values{}
	params.Set("serviceId", serviceID)
	var out struct {
		Addons []Addon `json:"addons"`
	}
	if err := c.get(ctx, "/addons", params, &out); err != nil {
		return nil, err
	}
	return out.Addons, nil
}

// GetAvailability returns available start times grouped by date for a
// batch window. Dates the staff member does not work may be absent.
func (c *Client) GetAvailability(ctx context.Context, q AvailabilityQuery) (map[string][]TimeSlot, error) {
	params := url.Values{}
	params.Set("start", q.Start)
	params.Set("end", q.End)
	params.Set("staffId", q.StaffID)
	params.Set("serviceId", q.ServiceID)
	if q.VariationID != "" {
		params.Set("variationId", q.VariationID)
	}
	if len(q.AddonIDs) > 0 {
		params.Set("addons", strings.Join(q.AddonIDs, ","))
	}
	var out struct {
		SlotsByDate map[string][]TimeSlot `json:"slotsByDate"`
	}
	if err := c.get(ctx, "/availability", params, &out); err != nil {
		return nil, err
	}
	return out.SlotsByDate, nil
}

// GetDayAvailability probes a single day, additionally reporting whether
// the staff member operates that day at all.
func (c *Client) GetDayAvailability(ctx context.Context, q AvailabilityQuery) (*DayAvailability, error) {
	params := url.Values{}
	params.Set("date", q.Start)
	params.Set("staffId", q.StaffID)
	params.Set("serviceId", q.ServiceID)
	if q.VariationID != "" {
		params.Set("variationId", q.VariationID)
	}
	if len(q.AddonIDs) > 0 {
		params.Set("addons", strings.Join(q.AddonIDs, ","))
	}
	var out DayAvailability
	if err := c.get(ctx, "/availability/day", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAppointment submits the assembled appointment and returns the
// created appointment's identifier.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/appointments", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("provider: create appointment returned empty id")
	}
	c.logger.Info("appointment created", "appointment_id", out.ID, "staff_id", req.StaffID)
	return out.ID, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("provider: create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("provider: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("provider: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("provider: missing api key")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.locationID != "" {
		req.Header.Set("X-Location-Id", c.locationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return fmt.Errorf("provider: status %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("provider: unmarshal response: %w", err)
	}
	return nil
}
