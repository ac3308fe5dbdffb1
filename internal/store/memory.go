package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process JSON tree with Realtime Database semantics:
// values round-trip through JSON (numbers come back as float64), the server
// timestamp placeholder is resolved on write, empty nodes disappear and
// transactions are optimistic compare-and-set on a content hash.
//
// Used for local runs without Firebase credentials and by tests.
type Memory struct {
	mu   sync.RWMutex
	root any

	maxRetries int
	now        func() time.Time
	fault      func(op, path string) error
}

// NewMemory returns an empty tree.
func NewMemory() *Memory {
	return &Memory{
		maxRetries: DefaultTxnRetries,
		now:        time.Now,
	}
}

// SetClock replaces the clock used to resolve server timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.now = now
}

// SetFault installs a hook consulted before every operation; a non-nil
// return fails the operation as a transient error.
func (m *Memory) SetFault(fn func(op, path string) error) {
	m.mu.Lock()
	m.fault = fn
	m.mu.Unlock()
}

func (m *Memory) checkFault(op, path string) error {
	m.mu.RLock()
	fault := m.fault
	m.mu.RUnlock()
	if fault == nil {
		return nil
	}
	if err := fault(op, path); err != nil {
		return transient(op, path, err)
	}
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func lookup(node any, parts []string) any {
	for _, p := range parts {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[p]
	}
	return node
}

// assign writes value at parts below root and returns the new root.
// A nil value deletes the node and prunes parents left empty.
func assign(root any, parts []string, value any) any {
	if len(parts) == 0 {
		return value
	}
	obj, ok := root.(map[string]any)
	if !ok {
		if value == nil {
			return root
		}
		obj = map[string]any{}
	}
	child := assign(obj[parts[0]], parts[1:], value)
	if child == nil {
		delete(obj, parts[0])
	} else {
		obj[parts[0]] = child
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

// normalize converts v into the generic JSON shape stored in the tree.
func (m *Memory) normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return m.resolve(out), nil
}

// resolve replaces server placeholders and drops empty maps.
func (m *Memory) resolve(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if sv, ok := obj[".sv"]; ok && len(obj) == 1 && sv == "timestamp" {
		return float64(m.now().UnixMilli())
	}
	for k, child := range obj {
		if r := m.resolve(child); r == nil {
			delete(obj, k)
		} else {
			obj[k] = r
		}
	}
	if len(obj) == 0 {
		return nil
	}
	return obj
}

func decodeInto(value any, v any) error {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return json.Unmarshal(data, v)
}

func etagOf(value any) string {
	data, _ := json.Marshal(value)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// snapshot returns a deep copy of the value at path so it can be read
// without holding the lock.
func (m *Memory) snapshot(path string) (any, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value := lookup(m.root, splitPath(path))
	data, _ := json.Marshal(value)
	sum := sha256.Sum256(data)
	var out any
	_ = json.Unmarshal(data, &out)
	return out, hex.EncodeToString(sum[:])
}

func (m *Memory) Get(ctx context.Context, path string, v any) error {
	_, err := m.GetWithETag(ctx, path, v)
	return err
}

func (m *Memory) GetWithETag(ctx context.Context, path string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transient("get", path, err)
	}
	if err := m.checkFault("get", path); err != nil {
		return "", err
	}
	value, etag := m.snapshot(path)
	if err := decodeInto(value, v); err != nil {
		return "", fmt.Errorf("get %s: %w", path, err)
	}
	return etag, nil
}

func (m *Memory) GetIfChanged(ctx context.Context, path, etag string, v any) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, etag, transient("get", path, err)
	}
	if err := m.checkFault("get", path); err != nil {
		return false, etag, err
	}
	value, current := m.snapshot(path)
	if current == etag {
		return false, etag, nil
	}
	if err := decodeInto(value, v); err != nil {
		return false, etag, fmt.Errorf("get %s: %w", path, err)
	}
	return true, current, nil
}

func (m *Memory) Set(ctx context.Context, path string, v any) error {
	if err := ctx.Err(); err != nil {
		return transient("set", path, err)
	}
	if err := m.checkFault("set", path); err != nil {
		return err
	}
	value, err := m.normalize(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	m.mu.Lock()
	m.root = assign(m.root, splitPath(path), value)
	m.mu.Unlock()
	return nil
}

// Update writes each field relative to path; nested keys may contain slashes.
func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return transient("update", path, err)
	}
	if err := m.checkFault("update", path); err != nil {
		return err
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		value, err := m.normalize(v)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", path, k, err)
		}
		values[k] = value
	}
	m.mu.Lock()
	for k, value := range values {
		m.root = assign(m.root, splitPath(Join(path, k)), value)
	}
	m.mu.Unlock()
	return nil
}

// Push stores v under a new time-ordered key.
func (m *Memory) Push(ctx context.Context, path string, v any) (string, error) {
	key := uuid.Must(uuid.NewV7()).String()
	if err := m.Set(ctx, Join(path, key), v); err != nil {
		return "", err
	}
	return key, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return transient("delete", path, err)
	}
	if err := m.checkFault("delete", path); err != nil {
		return err
	}
	m.mu.Lock()
	m.root = assign(m.root, splitPath(path), nil)
	m.mu.Unlock()
	return nil
}

type memoryNode struct {
	value any
}

func (n memoryNode) Unmarshal(v any) error {
	return decodeInto(n.value, v)
}

// Transaction reads without the lock, lets fn compute, and commits only if
// the node still hashes to what fn saw. Each lost race costs one retry.
func (m *Memory) Transaction(ctx context.Context, path string, fn UpdateFn) (Node, error) {
	parts := splitPath(path)
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, transient("transaction", path, err)
		}
		if err := m.checkFault("transaction", path); err != nil {
			return nil, err
		}

		current, etag := m.snapshot(path)
		next, err := fn(memoryNode{value: current})
		if err != nil {
			return nil, err
		}
		value, err := m.normalize(next)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", path, err)
		}

		m.mu.Lock()
		if etagOf(lookup(m.root, parts)) == etag {
			m.root = assign(m.root, parts, value)
			m.mu.Unlock()
			return memoryNode{value: value}, nil
		}
		m.mu.Unlock()
	}
	return nil, fmt.Errorf("transaction %s: %w: %w", path, ErrTransient, ErrTxnExhausted)
}

// QueryEqual returns the children of path whose child field equals value.
func (m *Memory) QueryEqual(ctx context.Context, path, child string, value any, v any) error {
	if err := ctx.Err(); err != nil {
		return transient("query", path, err)
	}
	if err := m.checkFault("query", path); err != nil {
		return err
	}
	want, err := m.normalize(value)
	if err != nil {
		return fmt.Errorf("query %s: %w", path, err)
	}
	current, _ := m.snapshot(path)
	obj, ok := current.(map[string]any)
	if !ok {
		return nil
	}
	matches := map[string]any{}
	for key, node := range obj {
		if etagOf(lookup(node, splitPath(child))) == etagOf(want) {
			matches[key] = node
		}
	}
	if len(matches) == 0 {
		return nil
	}
	return decodeInto(matches, v)
}
