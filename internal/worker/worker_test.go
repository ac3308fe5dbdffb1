package worker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"arthub/internal/model"
	"arthub/internal/queue"
	"arthub/internal/store"
	"arthub/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockDeliverer records every delivered notification.
type MockDeliverer struct {
	mu        sync.Mutex
	delivered []Delivered
	err       error
	transient int // fail this many calls with a transient error first
	calls     int
}

type Delivered struct {
	UserID    string
	Type      string
	SubjectID string
	Msg       model.Message
}

func (m *MockDeliverer) Deliver(ctx context.Context, userID, notifType string, subjectID *string, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.transient > 0 {
		m.transient--
		return fmt.Errorf("write inbox: %w", store.ErrTransient)
	}
	if m.err != nil {
		return m.err
	}
	d := Delivered{UserID: userID, Type: notifType, Msg: msg}
	if subjectID != nil {
		d.SubjectID = *subjectID
	}
	m.delivered = append(m.delivered, d)
	return nil
}

func (m *MockDeliverer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDeliverer) All() []Delivered {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Delivered(nil), m.delivered...)
}

// acceptedOnly notifies on acceptance only.
func acceptedOnly(change model.StatusChanged) (string, model.Message, bool) {
	if change.To != model.StatusAccepted {
		return "", model.Message{}, false
	}
	return model.NotificationTypeInvitationAccepted, model.Message{Title: "Congratulations!", Body: "accepted"}, true
}

// MockConsumer serves queued messages from memory.
type MockConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	fresh   []queue.Message
	acked   []string
}

func (m *MockConsumer) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (m *MockConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	m.mu.Lock()
	if len(m.fresh) > 0 {
		msgs := m.fresh
		m.fresh = nil
		m.mu.Unlock()
		return msgs, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (m *MockConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.pending
	m.pending = nil
	return msgs, nil
}

func (m *MockConsumer) Ack(ctx context.Context, stream, group string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, ids...)
	return nil
}

func (m *MockConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	return 0, nil
}

func (m *MockConsumer) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestInvitationAcceptedNotifiesArtist(t *testing.T) {
	d := &MockDeliverer{}
	handler := worker.NewHandler(d, acceptedOnly)

	event := queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")
	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	got := d.All()
	if len(got) != 1 {
		t.Fatalf("delivered %d, want 1", len(got))
	}
	if got[0].UserID != "artist-1" || got[0].SubjectID != "e1" || got[0].Type != model.NotificationTypeInvitationAccepted {
		t.Errorf("delivered = %+v", got[0])
	}
}

func TestInvitationWithoutCopyIsSilent(t *testing.T) {
	d := &MockDeliverer{}
	handler := worker.NewHandler(d, acceptedOnly)

	event := queue.NewInvitationStatusChangedEvent("e1", "artist-1", "accepted", "pending")
	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(d.All()) != 0 {
		t.Errorf("delivered %v", d.All())
	}
}

func TestCommentRepliedNotifiesParentAuthor(t *testing.T) {
	d := &MockDeliverer{}
	handler := worker.NewHandler(d, acceptedOnly)

	long := "This piece reminds me of the harbour at dawn, the blues are exactly right and the texture is wonderful"
	event := queue.NewCommentRepliedEvent("a1", "ana", "bo", "c9", long)
	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	got := d.All()
	if len(got) != 1 || got[0].UserID != "ana" || got[0].Type != model.NotificationTypeCommentReply {
		t.Fatalf("delivered = %+v", got)
	}
	if got[0].Msg.Data["comment_id"] != "c9" {
		t.Errorf("data = %v", got[0].Msg.Data)
	}
	if len([]rune(got[0].Msg.Body)) > 81 {
		t.Errorf("body not truncated: %q", got[0].Msg.Body)
	}
}

func TestSelfReplyIsSilent(t *testing.T) {
	d := &MockDeliverer{}
	handler := worker.NewHandler(d, acceptedOnly)

	event := queue.NewCommentRepliedEvent("a1", "ana", "ana", "c9", "me again")
	handler.HandleEvent(context.Background(), event)
	if len(d.All()) != 0 {
		t.Errorf("delivered %v", d.All())
	}
}

func TestUnknownEventType(t *testing.T) {
	handler := worker.NewHandler(&MockDeliverer{}, acceptedOnly)
	if err := handler.HandleEvent(context.Background(), queue.Event{Type: "post_created"}); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestDeliveryErrorIsReturned(t *testing.T) {
	d := &MockDeliverer{err: errors.New("db down")}
	handler := worker.NewHandler(d, acceptedOnly)

	event := queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")
	if err := handler.HandleEvent(context.Background(), event); err == nil {
		t.Error("expected delivery error")
	}
}

func TestInlinePublisherHandlesSynchronously(t *testing.T) {
	d := &MockDeliverer{}
	handler := worker.NewHandler(d, acceptedOnly)
	pub := queue.NewInlinePublisher(handler.HandleEvent)

	id, err := pub.Publish(context.Background(), queue.StreamEvents,
		queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if id == "" || len(d.All()) != 1 {
		t.Errorf("id=%q delivered=%v", id, d.All())
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManagerProcessesPendingThenNewAndAcks(t *testing.T) {
	d := &MockDeliverer{}
	consumer := &MockConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")}},
		fresh: []queue.Message{
			{ID: "2-0", Event: queue.NewCommentRepliedEvent("a1", "ana", "bo", "c1", "hi")},
			{ID: "3-0", Event: queue.Event{Type: "bogus"}},
		},
	}
	cfg := worker.DefaultManagerConfig()
	cfg.WorkerCount = 1
	cfg.BlockTimeout = 10 * time.Millisecond
	m := worker.NewManager(consumer, worker.NewHandler(d, acceptedOnly), cfg)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(consumer.Acked()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	acked := consumer.Acked()
	if len(acked) != 3 || acked[0] != "1-0" {
		t.Errorf("acked = %v, want pending message first and all three acked", acked)
	}
	if len(d.All()) != 2 {
		t.Errorf("delivered %d, want 2", len(d.All()))
	}
}

func runUntilAcked(t *testing.T, consumer *MockConsumer, handler *worker.Handler, want int) []string {
	t.Helper()
	cfg := worker.DefaultManagerConfig()
	cfg.WorkerCount = 1
	cfg.BlockTimeout = 10 * time.Millisecond
	m := worker.NewManager(consumer, handler, cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for len(consumer.Acked()) < want && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	return consumer.Acked()
}

func TestManagerRetriesTransientFailures(t *testing.T) {
	d := &MockDeliverer{transient: 2}
	consumer := &MockConsumer{
		fresh: []queue.Message{{ID: "1-0", Event: queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")}},
	}

	acked := runUntilAcked(t, consumer, worker.NewHandler(d, acceptedOnly), 1)
	if len(acked) != 1 {
		t.Fatalf("acked = %v", acked)
	}
	if d.Calls() != 3 || len(d.All()) != 1 {
		t.Errorf("calls = %d delivered = %d, want 3 attempts and 1 delivery", d.Calls(), len(d.All()))
	}
}

func TestManagerDoesNotRetryPermanentFailures(t *testing.T) {
	d := &MockDeliverer{err: errors.New("recipient has no inbox")}
	consumer := &MockConsumer{
		fresh: []queue.Message{{ID: "1-0", Event: queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")}},
	}

	runUntilAcked(t, consumer, worker.NewHandler(d, acceptedOnly), 1)
	if d.Calls() != 1 {
		t.Errorf("calls = %d, want 1", d.Calls())
	}
}

func TestManagerAcksUndecodableEntries(t *testing.T) {
	d := &MockDeliverer{}
	consumer := &MockConsumer{
		fresh: []queue.Message{{ID: "9-0", Err: errors.New("entry 9-0: missing type")}},
	}

	acked := runUntilAcked(t, consumer, worker.NewHandler(d, acceptedOnly), 1)
	if len(acked) != 1 || acked[0] != "9-0" {
		t.Errorf("acked = %v", acked)
	}
	if d.Calls() != 0 {
		t.Errorf("handler called %d times for an undecodable entry", d.Calls())
	}
}

// =============================================================================
// Redis Integration
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestStreamRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	d := &MockDeliverer{}
	publisher := queue.NewPublisher(client)
	consumer := queue.NewConsumer(client)

	cfg := worker.DefaultManagerConfig()
	cfg.WorkerCount = 2
	cfg.BlockTimeout = 50 * time.Millisecond
	m := worker.NewManager(consumer, worker.NewHandler(d, acceptedOnly), cfg)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	if _, err := publisher.Publish(ctx, queue.StreamEvents,
		queue.NewInvitationStatusChangedEvent("e1", "artist-1", "pending", "accepted")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(d.All()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := d.All(); len(got) != 1 || got[0].UserID != "artist-1" {
		t.Fatalf("delivered = %+v", got)
	}

	// The ack lands just after delivery.
	var pending int64 = -1
	for time.Now().Before(deadline) {
		n, err := consumer.Pending(ctx, queue.StreamEvents, queue.ConsumerGroupNotify)
		if err != nil {
			t.Fatalf("Pending failed: %v", err)
		}
		if pending = n; pending == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0 after ack", pending)
	}
}
