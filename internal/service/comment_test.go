package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"arthub/internal/model"
	"arthub/internal/queue"
	"arthub/internal/repository"
	"arthub/internal/store"
)

// mockPublisher records published events.
type mockPublisher struct {
	events    []queue.Event
	publishFn func(event queue.Event) error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.Event) (string, error) {
	m.events = append(m.events, event)
	if m.publishFn != nil {
		if err := m.publishFn(event); err != nil {
			return "", err
		}
	}
	return "1-0", nil
}

func newCommentFixture(t *testing.T) (*CommentService, *store.Memory, *mockPublisher, *CounterService) {
	t.Helper()
	mem := store.NewMemory()
	fixed := time.UnixMilli(1_700_000_000_000)
	mem.SetClock(func() time.Time { return fixed })

	pub := &mockPublisher{}
	counters := NewCounterService(repository.NewCounterRepository(mem), model.MembershipCounters...)
	svc := NewCommentService(repository.NewCommentRepository(mem), counters, pub)
	svc.now = func() time.Time { return fixed }
	return svc, mem, pub, counters
}

func TestCommentService_AddAndReplyBuildTree(t *testing.T) {
	svc, _, pub, counters := newCommentFixture(t)
	ctx := context.Background()
	ana := model.Identity{UserID: "ana", Email: "ana@arthub.test"}
	bo := model.Identity{UserID: "bo"}

	root, err := svc.Add(ctx, "a1", ana, model.CreateCommentRequest{Content: "  Lovely colours  "})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if root.Text != "Lovely colours" {
		t.Errorf("text = %q, want trimmed", root.Text)
	}

	reply, err := svc.Reply(ctx, "a1", []string{root.ID}, bo, model.CreateCommentRequest{Content: "Agreed"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if _, err := svc.Reply(ctx, "a1", []string{root.ID, reply.ID}, ana, model.CreateCommentRequest{Content: "Thanks"}); err != nil {
		t.Fatalf("nested Reply failed: %v", err)
	}

	list, err := svc.List(ctx, "a1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list.Total != 3 || len(list.Comments) != 1 {
		t.Fatalf("list = %+v, want 1 root and 3 total", list)
	}
	got := list.Comments[0]
	if got.AuthorID != "ana" || got.TimestampMillis != 1_700_000_000_000 {
		t.Errorf("root = %+v", got)
	}
	if len(got.Replies) != 1 || got.Replies[0].ID != reply.ID || len(got.Replies[0].Replies) != 1 {
		t.Errorf("replies = %+v", got.Replies)
	}

	// Only bo's reply to ana notifies; ana answering bo notifies bo.
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	first := pub.events[0]
	if first.Type != queue.EventCommentReplied || first.RecipientID != "ana" || first.ActorID != "bo" || first.SubjectID != "a1" {
		t.Errorf("event = %+v", first)
	}
	if pub.events[1].RecipientID != "bo" {
		t.Errorf("second recipient = %q, want bo", pub.events[1].RecipientID)
	}

	count, _ := counters.CounterValue(ctx, model.CounterKey{Name: CounterComments, SubjectID: "a1"})
	if count != 3 {
		t.Errorf("comments counter = %d, want 3", count)
	}
}

func TestCommentService_SelfReplyDoesNotNotify(t *testing.T) {
	svc, _, pub, _ := newCommentFixture(t)
	ctx := context.Background()
	ana := model.Identity{UserID: "ana"}

	root, _ := svc.Add(ctx, "a1", ana, model.CreateCommentRequest{Content: "first"})
	if _, err := svc.Reply(ctx, "a1", []string{root.ID}, ana, model.CreateCommentRequest{Content: "edit: second"}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("published %v", pub.events)
	}
}

func TestCommentService_ReplyToEmailOnlyAuthorDoesNotNotify(t *testing.T) {
	svc, mem, pub, _ := newCommentFixture(t)
	ctx := context.Background()
	mem.Set(ctx, "comments/a1", map[string]any{
		"c0": map[string]any{"text": "legacy", "userEmail": "old@arthub.test", "timestamp": 1},
	})

	reply, err := svc.Reply(ctx, "a1", []string{"c0"}, model.Identity{UserID: "bo"}, model.CreateCommentRequest{Content: "late reply"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if reply.ID == "" {
		t.Error("reply has no id")
	}
	if len(pub.events) != 0 {
		t.Errorf("published %+v, want nothing for an email-only author", pub.events)
	}

	list, err := svc.List(ctx, "a1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Comments) != 1 || len(list.Comments[0].Replies) != 1 {
		t.Errorf("comments = %+v, want the reply stored under c0", list.Comments)
	}
}

func TestCommentService_Validation(t *testing.T) {
	svc, _, _, _ := newCommentFixture(t)
	ctx := context.Background()
	ana := model.Identity{UserID: "ana"}

	tests := []struct {
		name    string
		subject string
		content string
		want    error
	}{
		{"empty", "a1", "   ", model.ErrContentRequired},
		{"too long", "a1", strings.Repeat("x", model.MaxCommentLength+1), model.ErrContentTooLong},
		{"no subject", "", "hello", model.ErrSubjectRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.subject, ana, model.CreateCommentRequest{Content: tt.content})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCommentService_ReplyToMissingParent(t *testing.T) {
	svc, _, _, _ := newCommentFixture(t)
	_, err := svc.Reply(context.Background(), "a1", []string{"nope"}, model.Identity{UserID: "bo"}, model.CreateCommentRequest{Content: "hi"})
	if !errors.Is(err, model.ErrCommentNotFound) {
		t.Errorf("err = %v, want ErrCommentNotFound", err)
	}
}

func TestCommentService_ListSkipsMalformed(t *testing.T) {
	svc, mem, _, _ := newCommentFixture(t)
	ctx := context.Background()
	mem.Set(ctx, "comments/a1", map[string]any{
		"c1": map[string]any{"comment": "ok", "userId": "u1", "timestamp": 2},
		"c2": map[string]any{"userId": "u2", "timestamp": 1}, // no text
		"c0": map[string]any{"text": "legacy", "userEmail": "old@arthub.test", "timestamp": 1},
	})

	list, err := svc.List(ctx, "a1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list.Comments) != 2 || list.Comments[0].ID != "c0" || list.Comments[1].ID != "c1" {
		t.Errorf("comments = %+v", list.Comments)
	}
}

func TestCommentService_StoreFailureSurfaces(t *testing.T) {
	svc, mem, _, _ := newCommentFixture(t)
	mem.SetFault(func(op, path string) error { return errors.New("offline") })

	_, err := svc.List(context.Background(), "a1")
	if !store.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}
