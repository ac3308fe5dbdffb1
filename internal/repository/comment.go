package repository

import (
	"context"
	"fmt"

	"arthub/internal/commenttree"
	"arthub/internal/model"
	"arthub/internal/store"
)

const commentsRoot = "comments"

type commentRepository struct {
	store store.Store
}

func NewCommentRepository(s store.Store) CommentRepository {
	return &commentRepository{store: s}
}

// GetSnapshot reads comments/{subjectId} once.
func (r *commentRepository) GetSnapshot(ctx context.Context, subjectID string) (map[string]any, error) {
	var snapshot map[string]any
	if err := r.store.Get(ctx, store.Join(commentsRoot, subjectID), &snapshot); err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	return snapshot, nil
}

// Create pushes a node; the store assigns a time-ordered id.
func (r *commentRepository) Create(ctx context.Context, subjectID string, parentPath []string, node map[string]any) (string, error) {
	segments := append([]string{commentsRoot, subjectID}, commenttree.StorePath(parentPath)...)
	if len(parentPath) > 0 {
		segments = append(segments, model.CommentFieldReplies)
	}
	id, err := r.store.Push(ctx, store.Join(segments...), node)
	if err != nil {
		return "", fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}
