// Package commenttree turns a raw comments snapshot into ordered, nested
// comments.
//
// A snapshot is the value stored at comments/{subjectId}: a map of comment id
// to node, where each node may carry a "replies" map of the same shape.
// Nodes that fail to decode are dropped together with their replies.
package commenttree

import (
	"sort"
	"time"

	"arthub/internal/model"
)

// Build returns the root comments of a snapshot with replies attached,
// siblings ordered by timestamp then id.
func Build(snapshot map[string]any, now time.Time) []model.Comment {
	comments, _ := BuildWithReport(snapshot, now)
	return comments
}

// BuildWithReport is Build plus the list of nodes that were dropped. Only the
// topmost malformed node of a dropped subtree is reported.
func BuildWithReport(snapshot map[string]any, now time.Time) ([]model.Comment, []*MalformedError) {
	var dropped []*MalformedError
	return buildLevel(snapshot, now, &dropped), dropped
}

func buildLevel(nodes map[string]any, now time.Time, dropped *[]*MalformedError) []model.Comment {
	out := make([]model.Comment, 0, len(nodes))
	for id, raw := range nodes {
		d := Decode(id, raw, now)
		if !d.OK() {
			*dropped = append(*dropped, d.Malformed)
			continue
		}
		c := d.Comment
		c.Replies = buildLevel(d.replies, now, dropped)
		out = append(out, c)
	}
	sortSiblings(out)
	return out
}

func sortSiblings(comments []model.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].TimestampMillis != comments[j].TimestampMillis {
			return comments[i].TimestampMillis < comments[j].TimestampMillis
		}
		return comments[i].ID < comments[j].ID
	})
}

// Count returns the number of comments in the tree, replies included.
func Count(comments []model.Comment) int {
	n := 0
	for _, c := range comments {
		n += 1 + Count(c.Replies)
	}
	return n
}

// Find follows a path of ids from the roots and returns the comment at its end.
func Find(comments []model.Comment, path []string) (*model.Comment, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for i := range comments {
		if comments[i].ID != path[0] {
			continue
		}
		if len(path) == 1 {
			return &comments[i], true
		}
		return Find(comments[i].Replies, path[1:])
	}
	return nil, false
}

// StorePath returns the store path segments of a comment below
// comments/{subjectId}, interleaving the "replies" collections.
func StorePath(path []string) []string {
	segments := make([]string, 0, 2*len(path))
	for i, id := range path {
		if i > 0 {
			segments = append(segments, model.CommentFieldReplies)
		}
		segments = append(segments, id)
	}
	return segments
}
