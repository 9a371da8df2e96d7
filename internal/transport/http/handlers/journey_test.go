package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"ems/internal/app/server"
	"ems/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := config.Defaults()
	cfg.DatabaseURL = dbURL
	cfg.JWTSecret = "test-secret"
	cfg.DataEncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Environment = "test"
	cfg.UploadDir = t.TempDir()
	cfg.SeedAdminEmail = "admin@test.local"
	cfg.SeedAdminPassword = "ChangeMe123"
	cfg.EmailFrom = "no-reply@test.local"
	cfg.RateLimitPerMinute = 1000
	return cfg
}

func startApp(t *testing.T, cfg config.Config) (*httptest.Server, *http.Client) {
	t.Helper()
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return ts, ts.Client()
}

func TestHRLeaveJourney(t *testing.T) {
	cfg := testConfig(t)
	ts, client := startApp(t, cfg)
	hrToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	departmentID := createID(t, client, ts.URL+"/api/v1/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Journey Dept %d", suffix),
	})
	positionID := createID(t, client, ts.URL+"/api/v1/positions", hrToken, map[string]any{
		"title": fmt.Sprintf("Journey Role %d", suffix),
	})

	email := fmt.Sprintf("journey-%d@example.com", suffix)
	password := "Journey123"
	employeeID := createID(t, client, ts.URL+"/api/v1/auth/register", hrToken, map[string]any{
		"firstName":    "Journey",
		"lastName":     "Tester",
		"email":        email,
		"gender":       "Female",
		"departmentId": departmentID,
		"positionId":   positionID,
		"salary":       3500,
		"password":     password,
		"role":         "Employee",
	})

	staffToken := login(t, client, ts.URL, email, password)
	var me struct {
		Employee struct {
			ID             string `json:"id"`
			EmployeeNumber string `json:"employeeNumber"`
		} `json:"employee"`
	}
	decode(t, getJSON(t, client, ts.URL+"/api/v1/me", staffToken, http.StatusOK), &me)
	if me.Employee.ID != employeeID || me.Employee.EmployeeNumber == "" {
		t.Fatalf("unexpected self profile: %+v", me.Employee)
	}

	start := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	end := time.Now().AddDate(0, 0, 9).Format("2006-01-02")
	requestID := createID(t, client, ts.URL+"/api/v1/leave/requests", staffToken, map[string]any{
		"leaveType": "vacation",
		"startDate": start,
		"endDate":   end,
		"reason":    "Family trip",
	})

	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/approve", staffToken, map[string]any{}, http.StatusForbidden)

	var decided struct {
		Status string `json:"status"`
	}
	decode(t, postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/approve", hrToken, map[string]any{
		"remarks": "enjoy",
	}, http.StatusOK), &decided)
	if decided.Status != "approved" {
		t.Fatalf("expected approved, got %s", decided.Status)
	}

	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/reject", hrToken, map[string]any{}, http.StatusConflict)

	resp := get(t, client, ts.URL+"/api/v1/leave/requests/"+requestID+"/slip", staffToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf slip, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	getJSON(t, client, ts.URL+"/api/v1/dashboard/hr", staffToken, http.StatusForbidden)
	getJSON(t, client, ts.URL+"/api/v1/dashboard/employee", staffToken, http.StatusOK)
}

func TestApplicationToHireJourney(t *testing.T) {
	cfg := testConfig(t)
	ts, client := startApp(t, cfg)
	hrToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	departmentID := createID(t, client, ts.URL+"/api/v1/departments", hrToken, map[string]any{
		"name": fmt.Sprintf("Hiring Dept %d", suffix),
	})
	positionID := createID(t, client, ts.URL+"/api/v1/positions", hrToken, map[string]any{
		"title": fmt.Sprintf("Hiring Role %d", suffix),
	})

	email := fmt.Sprintf("applicant-%d@example.com", suffix)
	applicationID := createID(t, client, ts.URL+"/api/v1/applications", "", map[string]any{
		"firstName":           "Ada",
		"lastName":            "Applicant",
		"email":               email,
		"phone":               "555-0100",
		"applyingForPosition": "Engineer",
	})

	postJSONStatus(t, client, ts.URL+"/api/v1/applications/"+applicationID+"/hire", "", map[string]any{}, http.StatusUnauthorized)

	var hired struct {
		Application struct {
			Status     string `json:"status"`
			EmployeeID string `json:"hiredEmployeeId"`
		} `json:"application"`
		Employee struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"employee"`
	}
	decode(t, postJSONStatus(t, client, ts.URL+"/api/v1/applications/"+applicationID+"/hire", hrToken, map[string]any{
		"password":     "Welcome123",
		"departmentId": departmentID,
		"positionId":   positionID,
		"salary":       4200,
	}, http.StatusCreated), &hired)
	if hired.Application.Status != "hired" || hired.Employee.ID == "" || hired.Employee.Email != email {
		t.Fatalf("unexpected hire result: %+v", hired)
	}

	postJSONStatus(t, client, ts.URL+"/api/v1/applications/"+applicationID+"/hire", hrToken, map[string]any{
		"password":     "Welcome123",
		"departmentId": departmentID,
		"positionId":   positionID,
	}, http.StatusConflict)

	login(t, client, ts.URL, email, "Welcome123")

	// Department in use by the new hire cannot be deleted.
	deleteStatus(t, client, ts.URL+"/api/v1/departments/"+departmentID, hrToken, http.StatusConflict)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSONStatus(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, http.StatusOK)
	var payload struct {
		Token string `json:"token"`
	}
	decode(t, resp, &payload)
	if payload.Token == "" {
		t.Fatal("expected token")
	}
	return payload.Token
}

func createID(t *testing.T, client *http.Client, url, token string, body any) string {
	t.Helper()
	var payload struct {
		ID string `json:"id"`
	}
	decode(t, postJSONStatus(t, client, url, token, body, http.StatusCreated), &payload)
	if payload.ID == "" {
		t.Fatalf("expected id from %s", url)
	}
	return payload.ID
}

func decode(t *testing.T, resp envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dst); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(t, client, req, token, want)
}

func getJSON(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return do(t, client, req, token, want)
}

func deleteStatus(t *testing.T, client *http.Client, url, token string, want int) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	do(t, client, req, token, want)
}

func get(t *testing.T, client *http.Client, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func do(t *testing.T, client *http.Client, req *http.Request, token string, want int) envelope {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", req.Method, req.URL.Path, want, resp.StatusCode, string(raw))
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
	}
	return env
}
