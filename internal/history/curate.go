// Package history turns caller-supplied conversation history into the
// bounded, causally validated context handed to the model.
package history

import (
	"strings"

	"github.com/tidwall/gjson"

	"tutor-agent/internal/domain"
)

// Decode reads a JSON array of {type, content} objects. Entries that are not
// objects or lack a string type are malformed and dropped, so they never count
// as turns. Non-string content decodes as empty content.
func Decode(raw []byte) []domain.RawTurn {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil
	}

	var turns []domain.RawTurn
	root.ForEach(func(_, entry gjson.Result) bool {
		if !entry.IsObject() {
			return true
		}
		typ := entry.Get("type")
		if typ.Type != gjson.String {
			return true
		}
		t := domain.RawTurn{Type: typ.Str}
		if content := entry.Get("content"); content.Type == gjson.String {
			t.Content = content.Str
		}
		turns = append(turns, t)
		return true
	})
	return turns
}

// Curate returns at most limit turns, most recent last. User turns with
// content are always kept. A model turn is kept only when the entry right
// after it is a user turn with content, i.e. the learner actually answered
// it; a trailing model turn is therefore always dropped.
//
// Only the last 2*limit entries are scanned.
func Curate(turns []domain.RawTurn, limit int) []domain.Turn {
	if len(turns) == 0 || limit <= 0 {
		return nil
	}
	window := turns
	if n := 2 * limit; len(window) > n {
		window = window[len(window)-n:]
	}

	out := make([]domain.Turn, 0, len(window))
	for i, t := range window {
		if blank(t.Content) {
			continue
		}
		switch {
		case t.IsUser():
			out = append(out, domain.Turn{Role: domain.RoleUser, Content: t.Content})
		case t.IsModel():
			if i+1 < len(window) && answered(window[i+1]) {
				out = append(out, domain.Turn{Role: domain.RoleModel, Content: t.Content})
			}
		}
	}

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func answered(next domain.RawTurn) bool {
	return next.IsUser() && !blank(next.Content)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
