package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/hi-events/hi-events-api/internal/models"
)

func TestAPI_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	_, api := humatest.New(t)
	RegisterOperations(api, env.authn, env.handlers)

	org := env.createUser(t, "org@example.com", models.RoleOrganizer)
	orgToken, _ := env.authn.Tokens().GenerateAccessToken(org.ID, org.Email, org.Role)

	// Sign up an attendee through the API.
	resp := api.Post(PathAuthRegister, map[string]any{
		"email":    "alice@example.com",
		"password": "Secret123!",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var session Envelope[Session]
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("register: invalid body: %v", err)
	}
	if !session.Success || session.Data.AccessToken == "" {
		t.Fatalf("register: unexpected body %s", resp.Body.String())
	}
	if resp.Header().Get("Set-Cookie") == "" {
		t.Error("register: expected session cookie")
	}
	aliceAuth := "Authorization: Bearer " + session.Data.AccessToken

	// Attendees cannot create events.
	event := map[string]any{
		"title":     "Go Meetup",
		"location":  "Prague",
		"startDate": "2031-01-01T18:00:00Z",
		"isPublic":  true,
		"status":    "PUBLISHED",
	}
	if resp := api.Post(PathEvents, aliceAuth, event); resp.Code != http.StatusForbidden {
		t.Fatalf("create as attendee: expected 403, got %d", resp.Code)
	}

	resp = api.Post(PathEvents, "Authorization: Bearer "+orgToken, event)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created Envelope[EventDisplay]
	json.Unmarshal(resp.Body.Bytes(), &created)

	resp = api.Post("/api/events/"+created.Data.ID+"/register", aliceAuth)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register for event: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = api.Get(PathEvents+"?limit=5", aliceAuth)
	var list Envelope[[]EventDisplay]
	json.Unmarshal(resp.Body.Bytes(), &list)
	if len(list.Data) != 1 || !list.Data[0].IsUserRegistered || list.Data[0].RegistrationCount != 1 {
		t.Errorf("list: unexpected body %s", resp.Body.String())
	}
	if list.Meta == nil || list.Meta.Limit != 5 {
		t.Errorf("list: expected meta with limit 5, got %+v", list.Meta)
	}
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	env := newTestEnv(t)
	_, api := humatest.New(t)
	RegisterOperations(api, env.authn, env.handlers)

	tests := []struct {
		name   string
		resp   func() int
		status int
	}{
		{"Unauthenticated", func() int { return api.Get(PathAuthProfile).Code }, http.StatusUnauthorized},
		{"NotFound", func() int { return api.Get(PathEvents + "/missing").Code }, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp(); got != tt.status {
				t.Errorf("expected %d, got %d", tt.status, got)
			}
		})
	}

	resp := api.Get(PathAuthProfile)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body.Success || body.Error != "No authentication token provided" {
		t.Errorf("unexpected error body %s", resp.Body.String())
	}
}
