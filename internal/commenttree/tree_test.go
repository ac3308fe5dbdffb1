package commenttree

import (
	"reflect"
	"testing"
	"time"

	"arthub/internal/model"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func TestBuild_NestedReply(t *testing.T) {
	snapshot := map[string]any{
		"c1": map[string]any{
			"comment":   "hi",
			"timestamp": float64(100),
			"userId":    "u1",
			"replies": map[string]any{
				"r1": map[string]any{"text": "yo", "timestamp": float64(150), "userId": "u2"},
			},
		},
	}

	got := Build(snapshot, testNow)

	want := []model.Comment{{
		ID: "c1", Text: "hi", AuthorID: "u1", TimestampMillis: 100,
		Replies: []model.Comment{{
			ID: "r1", Text: "yo", AuthorID: "u2", TimestampMillis: 150,
			Replies: []model.Comment{},
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestBuild_SiblingsSortedByTimestampThenID(t *testing.T) {
	snapshot := map[string]any{
		"b": map[string]any{"comment": "2", "timestamp": float64(200), "userId": "u"},
		"c": map[string]any{"comment": "3", "timestamp": float64(100), "userId": "u"},
		"a": map[string]any{"comment": "1", "timestamp": float64(200), "userId": "u"},
		"p": map[string]any{
			"comment": "parent", "timestamp": float64(300), "userId": "u",
			"replies": map[string]any{
				"z": map[string]any{"reply": "late", "timestamp": float64(900), "userId": "u"},
				"y": map[string]any{"reply": "tie", "timestamp": float64(500), "userId": "u"},
				"x": map[string]any{"reply": "tie", "timestamp": float64(500), "userId": "u"},
			},
		},
	}

	got := Build(snapshot, testNow)

	if ids := idsOf(got); !reflect.DeepEqual(ids, []string{"c", "a", "b", "p"}) {
		t.Errorf("root order = %v", ids)
	}
	if ids := idsOf(got[3].Replies); !reflect.DeepEqual(ids, []string{"x", "y", "z"}) {
		t.Errorf("reply order = %v", ids)
	}
}

func TestBuild_DropsNodeWithoutTextAndItsReplies(t *testing.T) {
	snapshot := map[string]any{
		"ok": map[string]any{"comment": "fine", "timestamp": float64(1), "userId": "u1"},
		"bad": map[string]any{
			"timestamp": float64(2), "userId": "u2",
			"replies": map[string]any{
				"orphan": map[string]any{"text": "child", "timestamp": float64(3), "userId": "u3"},
			},
		},
	}

	got, dropped := BuildWithReport(snapshot, testNow)

	if ids := idsOf(got); !reflect.DeepEqual(ids, []string{"ok"}) {
		t.Errorf("roots = %v, want [ok]", ids)
	}
	if Count(got) != 1 {
		t.Errorf("orphan reply was promoted or kept: count = %d", Count(got))
	}
	if len(dropped) != 1 || dropped[0].ID != "bad" || dropped[0].Field != "text" {
		t.Errorf("dropped = %+v", dropped)
	}
}

func TestBuild_DropsNodeWithoutAuthorOrTimestamp(t *testing.T) {
	snapshot := map[string]any{
		"noauthor": map[string]any{"comment": "x", "timestamp": float64(1)},
		"nots":     map[string]any{"comment": "x", "userId": "u"},
		"badts":    map[string]any{"comment": "x", "userId": "u", "timestamp": "yesterday"},
		"notmap":   "just a string",
	}

	got, dropped := BuildWithReport(snapshot, testNow)

	if len(got) != 0 {
		t.Errorf("got %d comments, want 0", len(got))
	}
	if len(dropped) != 4 {
		t.Errorf("dropped %d nodes, want 4", len(dropped))
	}
}

func TestDecode_Aliases(t *testing.T) {
	tests := []struct {
		name       string
		raw        map[string]any
		wantText   string
		wantAuthor string
	}{
		{"comment field", map[string]any{"comment": "a", "userId": "u1", "timestamp": float64(1)}, "a", "u1"},
		{"text field", map[string]any{"text": "b", "userId": "u1", "timestamp": float64(1)}, "b", "u1"},
		{"reply field", map[string]any{"reply": "c", "userId": "u1", "timestamp": float64(1)}, "c", "u1"},
		{"email author", map[string]any{"comment": "d", "userEmail": "m@x.io", "timestamp": float64(1)}, "d", "m@x.io"},
		{"userId wins", map[string]any{"comment": "e", "userId": "u9", "userEmail": "m@x.io", "timestamp": float64(1)}, "e", "u9"},
		{"empty alias skipped", map[string]any{"comment": "", "text": "f", "userId": "u1", "timestamp": float64(1)}, "f", "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode("id", tt.raw, testNow)
			if !d.OK() {
				t.Fatalf("Decode failed: %v", d.Malformed)
			}
			if d.Comment.Text != tt.wantText || d.Comment.AuthorID != tt.wantAuthor {
				t.Errorf("got text=%q author=%q", d.Comment.Text, d.Comment.AuthorID)
			}
		})
	}
}

func TestDecode_TimestampForms(t *testing.T) {
	tests := []struct {
		name string
		ts   any
		want int64
	}{
		{"int", 42, 42},
		{"int64", int64(1_699_999_999_999), 1_699_999_999_999},
		{"float millis", float64(1234.9), 1234},
		{"server placeholder", map[string]any{".sv": "timestamp"}, testNow.UnixMilli()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decode("id", map[string]any{"comment": "x", "userId": "u", "timestamp": tt.ts}, testNow)
			if !d.OK() {
				t.Fatalf("Decode failed: %v", d.Malformed)
			}
			if d.Comment.TimestampMillis != tt.want {
				t.Errorf("timestamp = %d, want %d", d.Comment.TimestampMillis, tt.want)
			}
		})
	}
}

func TestBuild_EmptySnapshot(t *testing.T) {
	got := Build(nil, testNow)
	if got == nil || len(got) != 0 {
		t.Errorf("Build(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestFindAndStorePath(t *testing.T) {
	snapshot := map[string]any{
		"c1": map[string]any{
			"comment": "root", "timestamp": float64(1), "userId": "u1",
			"replies": map[string]any{
				"r1": map[string]any{"text": "child", "timestamp": float64(2), "userId": "u2"},
			},
		},
	}
	tree := Build(snapshot, testNow)

	c, ok := Find(tree, []string{"c1", "r1"})
	if !ok || c.AuthorID != "u2" {
		t.Fatalf("Find(c1/r1) = %+v, %v", c, ok)
	}
	if _, ok := Find(tree, []string{"r1"}); ok {
		t.Error("Find(r1) at root should fail")
	}

	got := StorePath([]string{"c1", "r1"})
	want := []string{"c1", "replies", "r1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StorePath = %v, want %v", got, want)
	}
}

func idsOf(comments []model.Comment) []string {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}
