package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/models"
	"github.com/alvozedd/ClinicManagementSystem-sub003/internal/queue"
)

const (
	requestTimeout = 10 * time.Second
	maxReadTries   = 3
)

// APIError is a non-2xx response decoded from the backend's error
// envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the clinic queue backend. It implements both the
// queue coordinator's Service collaborator and the directory lookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) ListEntries(ctx context.Context) (models.QueueList, error) {
	var list models.QueueList
	if err := c.getJSON(ctx, "/api/queue", &list); err != nil {
		return models.QueueList{}, err
	}
	return list, nil
}

func (c *Client) GetStats(ctx context.Context) (models.QueueStats, error) {
	var stats models.QueueStats
	if err := c.getJSON(ctx, "/api/queue/stats", &stats); err != nil {
		return models.QueueStats{}, err
	}
	return stats, nil
}

func (c *Client) AddEntry(ctx context.Context, input queue.AddEntryInput) (models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := c.do(ctx, http.MethodPost, "/api/queue", input, &entry); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "already_queued" {
			return models.QueueEntry{}, queue.ErrAlreadyQueued
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (c *Client) UpdateEntry(ctx context.Context, entryID string, input queue.UpdateEntryInput) (models.QueueEntry, error) {
	var entry models.QueueEntry
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+entryID, input, &entry); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (c *Client) RemoveEntry(ctx context.Context, entryID string) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/"+entryID, nil, nil)
}

func (c *Client) Reorder(ctx context.Context, positions []models.QueuePosition) error {
	payload := struct {
		Order []models.QueuePosition `json:"order"`
	}{Order: positions}
	return c.do(ctx, http.MethodPost, "/api/queue/actions/reorder", payload, nil)
}

func (c *Client) ClearCompleted(ctx context.Context) (int, error) {
	var result struct {
		Removed int `json:"removed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/queue/actions/clear-completed", nil, &result); err != nil {
		return 0, err
	}
	return result.Removed, nil
}

func (c *Client) FindPatientByID(ctx context.Context, patientID string) (*models.PatientSummary, error) {
	var summary models.PatientSummary
	err := c.getJSON(ctx, "/api/patients/"+patientID, &summary)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

func (c *Client) FindAppointmentByID(ctx context.Context, appointmentID string) (*models.AppointmentSummary, error) {
	var summary models.AppointmentSummary
	err := c.getJSON(ctx, "/api/appointments/"+appointmentID, &summary)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// getJSON retries idempotent reads with exponential backoff; 4xx
// responses are permanent.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	operation := func() (struct{}, error) {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return struct{}{}, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxReadTries),
	)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unexpected_status"}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var envelope errorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
