package repository

import (
	"context"
	"fmt"
	"sort"

	"arthub/internal/model"
	"arthub/internal/store"
)

type chatRepository struct {
	store store.Store
}

func NewChatRepository(s store.Store) ChatRepository {
	return &chatRepository{store: s}
}

// ChatIDs reads userChats/{uid}, a set of chat ids.
func (r *chatRepository) ChatIDs(ctx context.Context, userID string) ([]string, error) {
	var set map[string]any
	if err := r.store.Get(ctx, store.Join("userChats", userID), &set); err != nil {
		return nil, fmt.Errorf("get user chats: %w", err)
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *chatRepository) Messages(ctx context.Context, chatID string) (map[string]model.ChatMessage, error) {
	var raw map[string]any
	if err := r.store.Get(ctx, store.Join("chats", chatID, "messages"), &raw); err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	messages := make(map[string]model.ChatMessage, len(raw))
	for id, v := range raw {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		sender, _ := fields["senderId"].(string)
		if sender == "" {
			continue
		}
		text, _ := fields["text"].(string)
		read, _ := fields["read"].(bool)
		ts, _ := asCount(fields["timestamp"])
		messages[id] = model.ChatMessage{SenderID: sender, Text: text, Read: read, Timestamp: ts}
	}
	return messages, nil
}
