package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"tickmate/internal/models"
)

// TestClient drives the running API the way a real client would, carrying a
// bearer token between calls.
type TestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// decode reads the response envelope, failing the test on an unexpected
// status code.
func (c *TestClient) decode(t *testing.T, resp *http.Response, wantStatus int, out interface{}) apiEnvelope {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	if resp.StatusCode != wantStatus {
		t.Fatalf("Expected status %d, got %d. Body: %s", wantStatus, resp.StatusCode, string(raw))
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v. Body: %s", err, string(raw))
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("Failed to decode data: %v. Body: %s", err, string(raw))
		}
	}

	return env
}

// expectError asserts the call failed with the given status and error kind.
func (c *TestClient) expectError(t *testing.T, resp *http.Response, wantStatus int, wantKind string) {
	env := c.decode(t, resp, wantStatus, nil)
	if env.Success {
		t.Fatalf("Expected an error response, got success")
	}
	if env.Error.Kind != wantKind {
		t.Fatalf("Expected error kind %s, got %s (%s)", wantKind, env.Error.Kind, env.Error.Message)
	}
}

func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Health check failed with status %d", resp.StatusCode)
	}
}

// Register creates an account; an already-registered email is tolerated so
// tests can rerun against the same database.
func (c *TestClient) Register(t *testing.T, email, password, role string) {
	resp := c.makeRequest(t, "POST", "/auth/register", models.RegisterRequest{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		Surname:   role,
		Role:      role,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Register failed with status %d: %s", resp.StatusCode, string(body))
	}
}

func (c *TestClient) Login(t *testing.T, email, password string) *models.AuthResponse {
	resp := c.makeRequest(t, "POST", "/auth/login", models.LoginRequest{
		Email:    email,
		Password: password,
	})

	var auth models.AuthResponse
	c.decode(t, resp, http.StatusOK, &auth)
	c.Token = auth.Token
	return &auth
}

func (c *TestClient) CreateEvent(t *testing.T, req models.CreateEventRequest) int64 {
	resp := c.makeRequest(t, "POST", "/api/events", req)

	var created models.CreateEventResponse
	c.decode(t, resp, http.StatusCreated, &created)
	return created.ID
}

func (c *TestClient) PublishEvent(t *testing.T, eventID int64) {
	resp := c.makeRequest(t, "POST", fmt.Sprintf("/api/events/%d/publish", eventID), nil)
	c.decode(t, resp, http.StatusOK, nil)
}

func (c *TestClient) AssignStaff(t *testing.T, eventID, staffID int64) {
	resp := c.makeRequest(t, "POST", fmt.Sprintf("/api/events/%d/staff", eventID),
		models.AssignStaffRequest{StaffID: staffID})
	c.decode(t, resp, http.StatusOK, nil)
}

func (c *TestClient) ListStaff(t *testing.T, eventID int64) []models.EventStaff {
	resp := c.makeRequest(t, "GET", fmt.Sprintf("/api/events/%d/staff", eventID), nil)

	var assignments []models.EventStaff
	c.decode(t, resp, http.StatusOK, &assignments)
	return assignments
}

func (c *TestClient) ListEvents(t *testing.T) []models.ListEventsResponseItem {
	resp := c.makeRequest(t, "GET", "/api/events", nil)

	var events []models.ListEventsResponseItem
	c.decode(t, resp, http.StatusOK, &events)
	return events
}

func (c *TestClient) IssueTicket(t *testing.T, eventID int64) *models.IssueTicketResponse {
	resp := c.makeRequest(t, "POST", "/api/tickets", models.IssueTicketRequest{EventID: eventID})

	var ticket models.IssueTicketResponse
	c.decode(t, resp, http.StatusCreated, &ticket)
	return &ticket
}

func (c *TestClient) CancelTicket(t *testing.T, ticketID int64) *models.CancelTicketResponse {
	resp := c.makeRequest(t, "DELETE", fmt.Sprintf("/api/tickets/%d", ticketID),
		models.CancelTicketRequest{Reason: "integration test"})

	var cancelled models.CancelTicketResponse
	c.decode(t, resp, http.StatusOK, &cancelled)
	return &cancelled
}

func (c *TestClient) Scan(t *testing.T, lookupKey, action string) *models.VerificationResult {
	resp := c.makeRequest(t, "POST", "/api/scans", models.ScanRequest{
		LookupKey: lookupKey,
		Action:    action,
	})

	var result models.VerificationResult
	c.decode(t, resp, http.StatusOK, &result)
	return &result
}

func (c *TestClient) Attendance(t *testing.T, eventID int64) *models.AttendanceSummary {
	resp := c.makeRequest(t, "GET", fmt.Sprintf("/api/events/%d/attendance", eventID), nil)

	var summary models.AttendanceSummary
	c.decode(t, resp, http.StatusOK, &summary)
	return &summary
}
