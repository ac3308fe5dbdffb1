package service

import (
	"context"
	"log"
	"strings"
	"time"

	"arthub/internal/commenttree"
	"arthub/internal/model"
	"arthub/internal/queue"
	"arthub/internal/repository"
	"arthub/internal/store"
)

// CounterComments is the raw counter bumped for every comment and reply.
const CounterComments = "comments"

type CommentService struct {
	commentRepo repository.CommentRepository
	counters    *CounterService // optional
	publisher   queue.Publisher // optional
	now         func() time.Time
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	counters *CounterService,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		counters:    counters,
		publisher:   publisher,
		now:         time.Now,
	}
}

// List returns the subject's comment tree, oldest first at every level.
func (s *CommentService) List(ctx context.Context, subjectID string) (*model.CommentListResponse, error) {
	if subjectID == "" {
		return nil, model.ErrSubjectRequired
	}

	snapshot, err := s.commentRepo.GetSnapshot(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	comments, dropped := commenttree.BuildWithReport(snapshot, s.now())
	for _, d := range dropped {
		log.Printf("[CommentService] Skipping malformed comment on %s: %v", subjectID, d)
	}

	return &model.CommentListResponse{
		SubjectID: subjectID,
		Comments:  comments,
		Total:     commenttree.Count(comments),
	}, nil
}

// Add posts a root comment on a subject.
func (s *CommentService) Add(ctx context.Context, subjectID string, author model.Identity, req model.CreateCommentRequest) (*model.Comment, error) {
	return s.create(ctx, subjectID, nil, author, req)
}

// Reply posts under the comment at parentPath (ids from the root down) and
// notifies the parent's author.
func (s *CommentService) Reply(ctx context.Context, subjectID string, parentPath []string, author model.Identity, req model.CreateCommentRequest) (*model.Comment, error) {
	if len(parentPath) == 0 {
		return nil, model.ErrCommentNotFound
	}
	return s.create(ctx, subjectID, parentPath, author, req)
}

func (s *CommentService) create(ctx context.Context, subjectID string, parentPath []string, author model.Identity, req model.CreateCommentRequest) (*model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if len(content) == 0 {
		return nil, model.ErrContentRequired
	}
	if len(content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}
	if subjectID == "" {
		return nil, model.ErrSubjectRequired
	}

	var parent *model.Comment
	if len(parentPath) > 0 {
		snapshot, err := s.commentRepo.GetSnapshot(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		found, ok := commenttree.Find(commenttree.Build(snapshot, s.now()), parentPath)
		if !ok {
			return nil, model.ErrCommentNotFound
		}
		parent = found
	}

	node := map[string]any{
		model.CommentFieldText:      content,
		model.CommentFieldUserID:    author.UserID,
		model.CommentFieldTimestamp: store.ServerTimestamp,
	}
	if author.Email != "" {
		node[model.CommentFieldUserEmail] = author.Email
	}

	id, err := s.commentRepo.Create(ctx, subjectID, parentPath, node)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:              id,
		Text:            content,
		AuthorID:        author.UserID,
		TimestampMillis: s.now().UnixMilli(),
		Replies:         []model.Comment{},
	}
	log.Printf("[CommentService] User %s commented on %s (comment=%s depth=%d)", author.UserID, subjectID, id, len(parentPath))

	// Comment is committed; the counter and the notification are best-effort.
	if s.counters != nil {
		key := model.CounterKey{Name: CounterComments, SubjectID: subjectID}
		if _, err := s.counters.IncrementCounter(ctx, key, 1); err != nil {
			log.Printf("[CommentService] Failed to bump %s: %v", key, err)
		}
	}

	if parent != nil && s.publisher != nil && parent.AuthorID != author.UserID {
		// Legacy nodes carry only userEmail; there is no uid to notify.
		if !isUserID(parent.AuthorID) {
			log.Printf("[CommentService] Skipping CommentReplied for %s: parent author %q has no user id", id, parent.AuthorID)
			return comment, nil
		}
		event := queue.NewCommentRepliedEvent(subjectID, parent.AuthorID, author.UserID, id, content)
		if _, err := s.publisher.Publish(ctx, queue.StreamEvents, event); err != nil {
			log.Printf("[CommentService] Failed to publish CommentReplied event: %v", err)
		}
	}

	return comment, nil
}

// isUserID reports whether an author value is an account uid rather than the
// email that legacy comments were keyed by.
func isUserID(author string) bool {
	return author != "" && !strings.Contains(author, "@")
}
