// Package booking calls the downstream booking service after a contract
// completes. The call is best-effort: a failure is logged by the caller and
// never rolls back finalization.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Confirmer confirms the booked services for a finalized contract.
type Confirmer interface {
	Confirm(ctx context.Context, eventID, vendorID string) error
}

// Client is an HTTP Confirmer against the booking service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a booking client with a bounded request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type confirmRequest struct {
	EventID  string `json:"event_id"`
	VendorID string `json:"vendor_id"`
}

// Confirm asks the booking service to mark the vendor's services confirmed
// for the event.
func (c *Client) Confirm(ctx context.Context, eventID, vendorID string) error {
	body, err := json.Marshal(confirmRequest{EventID: eventID, VendorID: vendorID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/internal/bookings/confirm-services", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("booking service returned %d", resp.StatusCode)
	}
	return nil
}

// Noop is the Confirmer used when no booking service is configured.
type Noop struct{}

// Confirm does nothing.
func (Noop) Confirm(context.Context, string, string) error { return nil }
