package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"arthub/internal/model"
	"arthub/internal/repository"
)

// maxChatReads bounds concurrent message reads per request.
const maxChatReads = 8

type ChatService struct {
	chatRepo repository.ChatRepository
}

func NewChatService(chatRepo repository.ChatRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

// UnreadCount counts messages in the user's chats that someone else sent
// and the user has not read yet.
func (s *ChatService) UnreadCount(ctx context.Context, userID string) (*model.UnreadResponse, error) {
	chatIDs, err := s.chatRepo.ChatIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &model.UnreadResponse{ByChat: make(map[string]int, len(chatIDs))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChatReads)
	for _, chatID := range chatIDs {
		g.Go(func() error {
			messages, err := s.chatRepo.Messages(gctx, chatID)
			if err != nil {
				return fmt.Errorf("chat %s: %w", chatID, err)
			}
			unread := 0
			for _, m := range messages {
				if m.SenderID != userID && !m.Read {
					unread++
				}
			}
			mu.Lock()
			resp.ByChat[chatID] = unread
			resp.Total += unread
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}
