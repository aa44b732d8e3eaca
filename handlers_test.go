package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// DB-free checks on the request parsing layer of the status endpoint: the
// body field name and the handling of malformed path identifiers. Anything
// past parsing needs Postgres; see the models regression test.

func newTestContext(t *testing.T, method string, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestTransitionRequest_BindsTaskStatusField(t *testing.T) {
	c, _ := newTestContext(t, http.MethodPut, "/api/jobcards/5/tasks/10/status", `{"taskStatus":"APPROVED"}`)

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		t.Fatalf("expected taskStatus body to bind, got %v", err)
	}
	if req.Status != "APPROVED" {
		t.Fatalf("expected APPROVED, got %q", req.Status)
	}
}

func TestTransitionRequest_RejectsWrongFieldName(t *testing.T) {
	c, _ := newTestContext(t, http.MethodPut, "/api/jobcards/5/tasks/10/status", `{"status":"APPROVED"}`)

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		t.Fatalf("expected a body without taskStatus to be rejected")
	}
}

func TestTransitionRequest_RejectsUnknownStatus(t *testing.T) {
	c, _ := newTestContext(t, http.MethodPut, "/api/jobcards/5/tasks/10/status", `{"taskStatus":"SHIPPED"}`)

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		t.Fatalf("expected an unknown status value to be rejected")
	}
}

func TestPathId_MalformedIdIsBadRequest(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3", "1.5", ""} {
		c, w := newTestContext(t, http.MethodGet, "/api/jobcards/"+raw, "")
		c.Params = gin.Params{{Key: "jobcardId", Value: raw}}

		if _, ok := pathId(c, "jobcardId"); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", raw, w.Code)
		}
	}
}

func TestPathId_WellFormedIdPasses(t *testing.T) {
	c, w := newTestContext(t, http.MethodGet, "/api/jobcards/12", "")
	c.Params = gin.Params{{Key: "jobcardId", Value: "12"}}

	id, ok := pathId(c, "jobcardId")
	if !ok || id != 12 {
		t.Fatalf("expected id 12, got %d ok=%v", id, ok)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("expected no error written, got %d", w.Code)
	}
}
