package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	dErrors "trustbadge/pkg/domain-errors"
)

// Record is a verification record as the server reports it.
type Record struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	Status             string     `json:"status"`
	IsVerified         bool       `json:"isVerified"`
	VerificationMethod string     `json:"verificationMethod"`
	SubmittedAt        time.Time  `json:"submittedAt"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
	DeviceInfo         string     `json:"deviceInfo,omitempty"`
}

// Client talks to the verification API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type submitPayload struct {
	Method string   `json:"method,omitempty"`
	Images []string `json:"images"`
}

// SubmitVerification sends the document and selfie pair and returns the
// created record.
func (c *Client) SubmitVerification(ctx context.Context, method string, document, selfie Image) (*Record, error) {
	payload := submitPayload{Method: method, Images: []string{document.Data, selfie.Data}}
	return c.do(ctx, http.MethodPost, "/verification/request", payload)
}

// VerificationStatus fetches the caller's current verification record.
func (c *Client) VerificationStatus(ctx context.Context) (*Record, error) {
	return c.do(ctx, http.MethodGet, "/verification/status", nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*Record, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode response")
	}
	return &rec, nil
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Code        string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Code == "" {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unexpected response status %d", resp.StatusCode))
	}
	msg := envelope.Description
	if msg == "" {
		msg = envelope.Code
	}
	return dErrors.New(dErrors.Code(envelope.Code), msg)
}
