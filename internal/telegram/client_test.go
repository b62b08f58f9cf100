package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoveFromChatBansThenUnbans(t *testing.T) {
	var calls []string
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "token123")
	c.baseURL = srv.URL + "/bottoken123"

	if err := c.RemoveFromChat(context.Background(), -100200, 42); err != nil {
		t.Fatalf("RemoveFromChat: %v", err)
	}

	want := []string{"/bottoken123/banChatMember", "/bottoken123/unbanChatMember"}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Fatalf("calls = %v; want %v", calls, want)
	}
	if got := bodies[0]["chat_id"].(float64); got != -100200 {
		t.Errorf("ban chat_id = %v; want -100200", got)
	}
	if got := bodies[1]["only_if_banned"].(bool); !got {
		t.Errorf("unban only_if_banned = %v; want true", got)
	}
}

func TestCallReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"description":"Bad Request: user not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), "t")
	c.baseURL = srv.URL + "/bott"

	err := c.BanChatMember(context.Background(), -1, 999)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
