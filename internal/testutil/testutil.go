package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/auth"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

// Request represents a test HTTP request
type Request struct {
	Method      string
	Path        string
	Body        interface{}
	RawBody     io.Reader
	Headers     map[string]string
	QueryParams map[string]string
	User        *TestUser
}

// Response represents a test HTTP response
type Response struct {
	*httptest.ResponseRecorder
	Body map[string]interface{}
	List []interface{}
}

// Do executes a test HTTP request against handler. A non-nil User is placed
// in the request context as if the authenticator had run.
func Do(t *testing.T, handler http.Handler, req Request) *Response {
	t.Helper()

	body := req.RawBody
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	httpReq := httptest.NewRequest(req.Method, req.Path, body)

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.QueryParams != nil {
		q := httpReq.URL.Query()
		for key, value := range req.QueryParams {
			q.Add(key, value)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	// Set default content type for JSON requests
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if req.User != nil {
		httpReq = httpReq.WithContext(ContextWithUser(httpReq.Context(), req.User))
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httpReq)

	resp := &Response{ResponseRecorder: recorder}
	if recorder.Body.Len() > 0 {
		raw := recorder.Body.Bytes()
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &resp.List); err != nil {
				t.Logf("Failed to decode response body: %v", err)
			}
		} else if err := json.Unmarshal(raw, &resp.Body); err != nil {
			t.Logf("Failed to decode response body: %v", err)
		}
	}
	return resp
}

// TestUser represents a signed-in admin
type TestUser struct {
	ID       uuid.UUID
	Email    string
	Name     string
	Role     rbac.Role
	AreaCode string
}

// NewRW returns the RW admin
func NewRW() *TestUser {
	return &TestUser{
		ID:    uuid.New(),
		Email: "ketua.rw@example.com",
		Name:  "Pak RW",
		Role:  rbac.RoleRW,
	}
}

// NewRT returns the RT admin of area
func NewRT(area string) *TestUser {
	return &TestUser{
		ID:       uuid.New(),
		Email:    "ketua.rt" + area + "@example.com",
		Name:     "Pak RT " + area,
		Role:     rbac.RoleRT,
		AreaCode: area,
	}
}

func (u *TestUser) Session() rbac.Session {
	return u.ToAuthenticatedUser().Session()
}

// ToAuthenticatedUser converts TestUser to auth.AuthenticatedUser
func (u *TestUser) ToAuthenticatedUser() *auth.AuthenticatedUser {
	return &auth.AuthenticatedUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		AreaCode: u.AreaCode,
	}
}

// ContextWithUser adds a test user to the context
func ContextWithUser(ctx context.Context, user *TestUser) context.Context {
	return auth.WithUser(ctx, user.ToAuthenticatedUser())
}

// TimeNow returns a consistent time for testing
func TimeNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// AssertJSON checks if the response body contains expected JSON fields
func AssertJSON(t *testing.T, resp *Response, field string, expected interface{}) {
	t.Helper()
	if resp.Body[field] != expected {
		t.Errorf("Expected %s to be %v, got %v", field, expected, resp.Body[field])
	}
}

// ErrorCode returns error.code of an error envelope
func (r *Response) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}
