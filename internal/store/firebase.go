package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/db"
)

// Firebase adapts the Admin SDK Realtime Database client to Store.
// Every SDK error is treated as transient: the SDK talks REST and its
// failures are network or availability problems from our point of view.
type Firebase struct {
	client *db.Client

	// transact runs the SDK transaction loop; replaced in tests.
	transact func(ctx context.Context, path string, fn db.UpdateFn) error
}

// NewFirebase wraps an initialized database client.
func NewFirebase(client *db.Client) *Firebase {
	f := &Firebase{client: client}
	f.transact = func(ctx context.Context, path string, fn db.UpdateFn) error {
		return f.ref(path).Transaction(ctx, fn)
	}
	return f
}

func (f *Firebase) ref(path string) *db.Ref {
	return f.client.NewRef(path)
}

func transient(op, path string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, path, ErrTransient, err)
}

func (f *Firebase) Get(ctx context.Context, path string, v any) error {
	if err := f.ref(path).Get(ctx, v); err != nil {
		return transient("get", path, err)
	}
	return nil
}

func (f *Firebase) GetWithETag(ctx context.Context, path string, v any) (string, error) {
	etag, err := f.ref(path).GetWithETag(ctx, v)
	if err != nil {
		return "", transient("get", path, err)
	}
	return etag, nil
}

func (f *Firebase) GetIfChanged(ctx context.Context, path, etag string, v any) (bool, string, error) {
	changed, newETag, err := f.ref(path).GetIfChanged(ctx, etag, v)
	if err != nil {
		return false, etag, transient("get", path, err)
	}
	return changed, newETag, nil
}

func (f *Firebase) Set(ctx context.Context, path string, v any) error {
	if err := f.ref(path).Set(ctx, v); err != nil {
		return transient("set", path, err)
	}
	return nil
}

func (f *Firebase) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := f.ref(path).Update(ctx, fields); err != nil {
		return transient("update", path, err)
	}
	return nil
}

func (f *Firebase) Push(ctx context.Context, path string, v any) (string, error) {
	child, err := f.ref(path).Push(ctx, v)
	if err != nil {
		return "", transient("push", path, err)
	}
	return child.Key, nil
}

func (f *Firebase) Delete(ctx context.Context, path string) error {
	if err := f.ref(path).Delete(ctx); err != nil {
		return transient("delete", path, err)
	}
	return nil
}

// Transaction runs fn through the SDK's ETag based compare-and-set loop.
// The SDK only reports success, so the value fn produced on the last
// (committed) attempt is kept and handed back as the node. Server value
// placeholders in it are not resolved.
// An error returned by fn aborts without being marked transient.
func (f *Firebase) Transaction(ctx context.Context, path string, fn UpdateFn) (Node, error) {
	startTime := time.Now()

	var (
		fnErr     error
		committed any
	)
	err := f.transact(ctx, path, func(tn db.TransactionNode) (interface{}, error) {
		next, err := fn(tn)
		if err != nil {
			fnErr = err
			return nil, err
		}
		committed = next
		return next, nil
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		log.Printf("[Store] Transaction FAILED: path=%s duration=%v err=%v", path, time.Since(startTime), err)
		return nil, fmt.Errorf("transaction %s: %w: %w", path, ErrTransient, err)
	}
	return memoryNode{value: committed}, nil
}

func (f *Firebase) QueryEqual(ctx context.Context, path, child string, value any, v any) error {
	if err := f.ref(path).OrderByChild(child).EqualTo(value).Get(ctx, v); err != nil {
		return transient("query", path, err)
	}
	return nil
}
