// Package crm is a thin client for the HubSpot CRM v3 object endpoints.
//
// Every operation degrades to an empty result on failure: the failure is recorded
// as an ERROR activity entry and callers see "no data", never an error.
package crm

import (
	"bytes"
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

	"github.com/jonathan/gtm-agent/internal/activity"
	"github.com/jonathan/gtm-agent/internal/schemas"
	rootschemas "github.com/jonathan/gtm-agent/schemas"
)

// DefaultBaseURL is the public HubSpot API host.
const DefaultBaseURL = "https://api.hubapi.com"

const (
	// DefaultTimeout bounds each object read or write.
	DefaultTimeout = 15 * time.Second
	// AssociationTimeout bounds the task-to-deal association write.
	AssociationTimeout = 10 * time.Second
)

// API is the subset of CRM operations the jobs and handlers depend on.
type API interface {
	ListContacts(ctx context.Context, limit int, properties []string) []Contact
	ListDeals(ctx context.Context, limit int) []Deal
	CreateTask(ctx context.Context, in TaskInput) *Task
	UpdateContactScore(ctx context.Context, contactID string, score float64) bool
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Recorder   activity.Recorder
}

// Client talks to the CRM REST API with a bearer token.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	recorder activity.Recorder
}

var _ API = (*Client)(nil)

// NewClient creates a client. A missing token is allowed; every call then logs
// an error and returns an empty result.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:  base,
		token:    opts.Token,
		http:     hc,
		recorder: opts.Recorder,
	}
}

// Configured reports whether an access token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

type listResponse[T any] struct {
	Results []T `json:"results"`
}

// ListContacts fetches up to limit contacts with the named properties.
func (c *Client) ListContacts(ctx context.Context, limit int, properties []string) []Contact {
	var resp listResponse[Contact]
	endpoint := "/crm/v3/objects/contacts"
	if err := c.list(ctx, endpoint, limit, properties, &resp); err != nil {
		c.fail(ctx, "contacts fetch", err)
		return nil
	}
	return resp.Results
}

// ListDeals fetches up to limit deals with the properties the jobs use.
func (c *Client) ListDeals(ctx context.Context, limit int) []Deal {
	var resp listResponse[Deal]
	endpoint := "/crm/v3/objects/deals"
	if err := c.list(ctx, endpoint, limit, DealProperties, &resp); err != nil {
		c.fail(ctx, "deals fetch", err)
		return nil
	}
	return resp.Results
}

// CreateTask creates a high-priority task and, when DealID is set, associates it
// with the deal. A failed association is logged but the task is still returned.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) *Task {
	due := time.Now().UTC()
	if in.Due != nil {
		due = in.Due.UTC()
	}
	payload := map[string]any{
		"properties": map[string]string{
			"hs_task_subject":  in.Title,
			"hs_task_body":     in.Body,
			"hs_task_status":   TaskStatusNotStarted,
			"hs_task_priority": TaskPriorityHigh,
			"hs_timestamp":     due.Format(time.RFC3339Nano),
		},
	}

	var task Task
	endpoint := "/crm/v3/objects/tasks"
	if err := c.do(ctx, http.MethodPost, endpoint, payload, rootschemas.CRMObject, &task); err != nil {
		c.fail(ctx, "task creation", err)
		return nil
	}

	if in.DealID != "" {
		c.associate(ctx, task.ID, in.DealID)
	}
	return &task
}

// UpdateContactScore writes lead_score_ml on a contact.
func (c *Client) UpdateContactScore(ctx context.Context, contactID string, score float64) bool {
	payload := map[string]any{
		"properties": map[string]string{
			"lead_score_ml": strconv.FormatFloat(score, 'f', -1, 64),
		},
	}
	endpoint := "/crm/v3/objects/contacts/" + url.PathEscape(contactID)
	if err := c.do(ctx, http.MethodPatch, endpoint, payload, rootschemas.CRMObject, nil); err != nil {
		c.fail(ctx, "contact score update", err)
		return false
	}
	c.log(ctx, activity.CategoryUpdate, fmt.Sprintf("Updated lead score for contact %s", contactID),
		map[string]any{"contact_id": contactID, "score": score})
	return true
}

func (c *Client) associate(ctx context.Context, taskID, dealID string) {
	ctx, cancel := context.WithTimeout(ctx, AssociationTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("/crm/v3/objects/tasks/%s/associations/deals/%s/task_to_deal",
		url.PathEscape(taskID), url.PathEscape(dealID))
	if err := c.do(ctx, http.MethodPut, endpoint, nil, "", nil); err != nil {
		c.fail(ctx, "task association", err)
	}
}

func (c *Client) list(ctx context.Context, endpoint string, limit int, properties []string, out any) error {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(properties) > 0 {
		q.Set("properties", strings.Join(properties, ","))
	}
	path := endpoint
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return c.do(ctx, http.MethodGet, path, nil, rootschemas.CRMList, out)
}

// do performs one request. When schema is set the response body is validated
// against it before decoding into out.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any, schema string, out any) error {
	if c.token == "" {
		return &Error{Endpoint: endpoint, Cause: ErrNoToken}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &Error{Endpoint: endpoint, Cause: fmt.Errorf("failed to encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return &Error{Endpoint: endpoint, Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Body: truncate(string(raw), maxBodyLen)}
	}

	if out == nil && schema == "" {
		return nil
	}
	if schema != "" {
		if err := schemas.ValidateEmbedded(schema, raw); err != nil {
			return &Error{
				Endpoint: endpoint,
				Status:   resp.StatusCode,
				Body:     truncate(string(raw), maxBodyLen),
				Cause:    fmt.Errorf("malformed response: %w", err),
			}
		}
	}
	if out == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Cause: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) fail(ctx context.Context, op string, err error) {
	var data any
	var ce *Error
	if errors.As(err, &ce) {
		data = ce.logData()
	}
	c.log(ctx, activity.CategoryError, fmt.Sprintf("CRM %s error: %v", op, err), data)
}

func (c *Client) log(ctx context.Context, category activity.Category, msg string, data any) {
	if c.recorder == nil {
		return
	}
	c.recorder.Log(ctx, category, msg, data)
}
