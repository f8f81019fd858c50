//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizset-service/internal/auth/jwt"
	"github.com/gokatarajesh/quizset-service/internal/domain"
)

type caller struct {
	ID          uuid.UUID
	AccessToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string {
	return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
}

// newCaller mints a token with the secret the server under test verifies.
func newCaller(t *testing.T, role string) caller {
	t.Helper()

	mgr := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(envOrDefault("INTEGRATION_JWT_SECRET", "dev-secret")),
		Issuer:       envOrDefault("INTEGRATION_JWT_ISSUER", "quizset-service"),
	})
	id := uuid.New()
	token, err := mgr.GenerateAccessToken(jwt.Subject{
		ID:    id,
		Name:  fmt.Sprintf("%s-%d", role, time.Now().UnixNano()),
		Email: fmt.Sprintf("%s@example.com", id),
		Role:  role,
	})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return caller{ID: id, AccessToken: token}
}

func newUser(t *testing.T) caller  { return newCaller(t, domain.RoleUser) }
func newAdmin(t *testing.T) caller { return newCaller(t, domain.RoleAdmin) }

func makeAuthenticatedRequest(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, status int, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode response: %v (%s)", err, data)
		}
	}
}

// createQuestionSet stores a two-question set: q1 has the single correct
// choice c1, q2 needs both a and b.
func createQuestionSet(t *testing.T, admin caller) uuid.UUID {
	t.Helper()

	payload := map[string]interface{}{
		"title":       fmt.Sprintf("Integration %d", time.Now().UnixNano()),
		"description": "created by the integration suite",
		"questions": []map[string]interface{}{
			{"id": "q1", "text": "Pick c1", "choices": []map[string]interface{}{
				{"id": "c1", "text": "one", "isCorrectAnswer": true},
				{"id": "c2", "text": "two"},
			}},
			{"id": "q2", "text": "Pick a and b", "choices": []map[string]interface{}{
				{"id": "a", "text": "A", "isCorrectAnswer": true},
				{"id": "b", "text": "B", "isCorrectAnswer": true},
				{"id": "c", "text": "C"},
			}},
		},
	}

	var out struct {
		QuestionSet struct {
			ID uuid.UUID `json:"id"`
		} `json:"questionSet"`
	}
	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/v1/question-sets", admin.AccessToken, payload)
	expectStatus(t, resp, http.StatusCreated, &out)
	if out.QuestionSet.ID == uuid.Nil {
		t.Fatal("created question set has no id")
	}

	t.Cleanup(func() {
		resp := makeAuthenticatedRequest(t, http.MethodDelete, baseURL()+"/v1/question-sets/"+out.QuestionSet.ID.String(), admin.AccessToken, nil)
		resp.Body.Close()
	})
	return out.QuestionSet.ID
}
