package service

import (
	"context"
	"errors"
	"testing"

	"arthub/internal/repository"
	"arthub/internal/store"
)

func TestChatService_UnreadCount(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	seed := map[string]any{
		"userChats/u1": map[string]any{"c1": true, "c2": true},
		"chats/c1/messages": map[string]any{
			"m1": map[string]any{"senderId": "u2", "text": "hi", "read": false},
			"m2": map[string]any{"senderId": "u2", "text": "there", "read": true},
			"m3": map[string]any{"senderId": "u1", "text": "mine", "read": false},
		},
		"chats/c2/messages": map[string]any{
			"m1": map[string]any{"senderId": "u3", "text": "price?"},
			"m2": map[string]any{"text": "no sender"},
		},
	}
	for path, v := range seed {
		if err := mem.Set(ctx, path, v); err != nil {
			t.Fatalf("Set %s failed: %v", path, err)
		}
	}
	svc := NewChatService(repository.NewChatRepository(mem))

	got, err := svc.UnreadCount(ctx, "u1")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if got.Total != 2 || got.ByChat["c1"] != 1 || got.ByChat["c2"] != 1 {
		t.Errorf("unread = %+v, want total 2 (c1:1 c2:1)", got)
	}

	none, err := svc.UnreadCount(ctx, "nobody")
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if none.Total != 0 || len(none.ByChat) != 0 {
		t.Errorf("unread = %+v, want empty", none)
	}
}

func TestChatService_FailedChatReadFailsRequest(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	mem.Set(ctx, "userChats/u1", map[string]any{"c1": true})
	mem.SetFault(func(op, path string) error {
		if path == "chats/c1/messages" {
			return errors.New("timeout")
		}
		return nil
	})
	svc := NewChatService(repository.NewChatRepository(mem))

	if _, err := svc.UnreadCount(ctx, "u1"); !store.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
