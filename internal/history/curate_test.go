package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"tutor-agent/internal/domain"
)

func user(s string) domain.RawTurn  { return domain.RawTurn{Type: "user", Content: s} }
func model(s string) domain.RawTurn { return domain.RawTurn{Type: "ai", Content: s} }

func userTurn(s string) domain.Turn  { return domain.Turn{Role: domain.RoleUser, Content: s} }
func modelTurn(s string) domain.Turn { return domain.Turn{Role: domain.RoleModel, Content: s} }

func TestCurate_Empty(t *testing.T) {
	for _, limit := range []int{1, 4, 20} {
		require.Empty(t, Curate(nil, limit))
		require.Empty(t, Curate([]domain.RawTurn{}, limit))
	}
}

func TestCurate_SingleUserTurn(t *testing.T) {
	require.Equal(t, []domain.Turn{userTurn("Hi")}, Curate([]domain.RawTurn{user("Hi")}, 20))
}

func TestCurate_TrailingModelTurnDropped(t *testing.T) {
	require.Empty(t, Curate([]domain.RawTurn{model("Hi!")}, 20))
	require.Equal(t,
		[]domain.Turn{userTurn("Hello")},
		Curate([]domain.RawTurn{user("Hello"), model("How are you?")}, 20),
	)
}

func TestCurate_ModelTurnAnsweredByUserKept(t *testing.T) {
	require.Equal(t,
		[]domain.Turn{modelTurn("A"), userTurn("B")},
		Curate([]domain.RawTurn{model("A"), user("B")}, 20),
	)
}

func TestCurate_LimitKeepsMostRecent(t *testing.T) {
	var turns []domain.RawTurn
	for i := 1; i <= 4; i++ {
		turns = append(turns, model(fmt.Sprintf("AI%d", i)), user(fmt.Sprintf("User%d", i)))
	}
	require.Equal(t,
		[]domain.Turn{modelTurn("AI3"), userTurn("User3"), modelTurn("AI4"), userTurn("User4")},
		Curate(turns, 4),
	)
}

func TestCurate_BlankContentBreaksLookahead(t *testing.T) {
	got := Curate([]domain.RawTurn{
		model("Unanswered"),
		user("   "),
		model(""),
		user("Real reply"),
		model("Consecutive one"),
		model("Consecutive two"),
		user("Answer"),
	}, 20)
	require.Equal(t, []domain.Turn{userTurn("Real reply"), modelTurn("Consecutive two"), userTurn("Answer")}, got)
}

func TestCurate_UnknownTypeBreaksLookahead(t *testing.T) {
	got := Curate([]domain.RawTurn{
		model("Question?"),
		{Type: "system", Content: "noise"},
		user("Reply"),
	}, 20)
	require.Equal(t, []domain.Turn{userTurn("Reply")}, got)
}

func TestCurate_WindowDoesNotChangeResult(t *testing.T) {
	var turns []domain.RawTurn
	for i := 0; i < 30; i++ {
		turns = append(turns, model(fmt.Sprintf("m%d", i)), user(fmt.Sprintf("u%d", i)))
	}
	got := Curate(turns, 5)
	require.Len(t, got, 5)
	require.Equal(t, userTurn("u27"), got[0])
	require.Equal(t, userTurn("u29"), got[4])

	// a wider scan over the same input yields the same tail
	wide := Curate(turns, 60)
	require.Equal(t, wide[len(wide)-5:], got)
}

func TestCurate_DoesNotMutateInput(t *testing.T) {
	turns := []domain.RawTurn{model("A"), user("B"), model("C")}
	snapshot := append([]domain.RawTurn(nil), turns...)
	_ = Curate(turns, 1)
	require.Equal(t, snapshot, turns)
}

func TestDecode(t *testing.T) {
	raw := []byte(`[
		{"type":"ai","content":"Hi!"},
		"not an object",
		42,
		{"content":"no type"},
		{"type":7,"content":"numeric type"},
		{"type":"user","content":5},
		{"type":"user"},
		{"type":"user","content":"Hello"}
	]`)
	require.Equal(t, []domain.RawTurn{
		{Type: "ai", Content: "Hi!"},
		{Type: "user"},
		{Type: "user"},
		{Type: "user", Content: "Hello"},
	}, Decode(raw))
}

func TestDecode_NotAnArray(t *testing.T) {
	require.Nil(t, Decode(nil))
	require.Nil(t, Decode([]byte(`{"type":"user"}`)))
	require.Nil(t, Decode([]byte(`[{"type":`)))
	require.Nil(t, Decode([]byte(`null`)))
}
