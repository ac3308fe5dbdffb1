package commenttree

import (
	"fmt"
	"math"
	"time"

	"arthub/internal/model"
)

// Field aliases, most preferred first.
var (
	textAliases   = []string{model.CommentFieldText, "text", "reply"}
	authorAliases = []string{model.CommentFieldUserID, model.CommentFieldUserEmail}
)

// MalformedError describes a node that could not be decoded.
type MalformedError struct {
	ID    string
	Field string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("comment %s: missing or invalid %s", e.ID, e.Field)
}

// Decoded is the outcome of decoding one node: either Comment is usable and
// Malformed is nil, or Malformed says why the node was rejected.
type Decoded struct {
	Comment   model.Comment
	Malformed *MalformedError

	replies map[string]any
}

// OK reports whether the node decoded.
func (d Decoded) OK() bool {
	return d.Malformed == nil
}

// Decode validates a single raw node. Replies are not decoded; they are kept
// raw for the caller to recurse into.
func Decode(id string, raw any, now time.Time) Decoded {
	fields, ok := raw.(map[string]any)
	if !ok {
		return Decoded{Malformed: &MalformedError{ID: id, Field: "node"}}
	}

	text, ok := firstString(fields, textAliases)
	if !ok {
		return Decoded{Malformed: &MalformedError{ID: id, Field: "text"}}
	}
	author, ok := firstString(fields, authorAliases)
	if !ok {
		return Decoded{Malformed: &MalformedError{ID: id, Field: "author"}}
	}
	ts, ok := timestampMillis(fields[model.CommentFieldTimestamp], now)
	if !ok {
		return Decoded{Malformed: &MalformedError{ID: id, Field: "timestamp"}}
	}

	replies, _ := fields[model.CommentFieldReplies].(map[string]any)
	return Decoded{
		Comment: model.Comment{
			ID:              id,
			Text:            text,
			AuthorID:        author,
			TimestampMillis: ts,
		},
		replies: replies,
	}
}

func firstString(fields map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		if s, ok := fields[key].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// timestampMillis accepts integers, floats (already millis, truncated) and the
// server timestamp placeholder, which is still pending locally and reads as now.
func timestampMillis(v any, now time.Time) (int64, bool) {
	switch ts := v.(type) {
	case int:
		return int64(ts), true
	case int64:
		return ts, true
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return 0, false
		}
		return int64(ts), true
	case map[string]any:
		if ts[".sv"] == "timestamp" {
			return now.UnixMilli(), true
		}
	}
	return 0, false
}
