package prompt

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"tutor-agent/internal/domain"
)

func newEmbeddedEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil, System, Tutoring, Start)
	require.NoError(t, err)
	return e
}

func TestNewEngine_RequiredTemplateMissing(t *testing.T) {
	fsys := fstest.MapFS{"system.tmpl": {Data: []byte("hi")}}
	_, err := NewEngine(fsys, System, Tutoring)
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.Contains(t, err.Error(), "template 'tutoring' not found")
}

func TestNewEngine_InvalidSyntax(t *testing.T) {
	fsys := fstest.MapFS{"broken.tmpl": {Data: []byte("{{ .Language ")}}
	_, err := NewEngine(fsys)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse broken.tmpl")
}

func TestRender_UnknownTemplate(t *testing.T) {
	e := newEmbeddedEngine(t)
	_, err := e.Render("nonexistent", Vars{})
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.Contains(t, err.Error(), "template 'nonexistent' not found")
}

func TestRender_CustomTemplate(t *testing.T) {
	fsys := fstest.MapFS{"greet.tmpl": {Data: []byte("Practice {{ .Language }} conversation at {{ .Level }} level.")}}
	e, err := NewEngine(fsys)
	require.NoError(t, err)
	for _, lang := range domain.Languages {
		out, err := e.Render("greet", Vars{Language: lang, Level: domain.LevelB1})
		require.NoError(t, err)
		require.Equal(t, "Practice "+string(lang)+" conversation at B1 level.", out)
	}
}

func TestRender_SystemIsLevelAware(t *testing.T) {
	e := newEmbeddedEngine(t)

	beginner, err := e.Render(System, Vars{Language: domain.LanguagePolish, Level: domain.LevelA1})
	require.NoError(t, err)
	require.Contains(t, beginner, "Polish language tutor")
	require.Contains(t, beginner, "short sentences")

	advanced, err := e.Render(System, Vars{Language: domain.LanguagePolish, Level: domain.LevelC1})
	require.NoError(t, err)
	require.Contains(t, advanced, "level C1")
	require.Contains(t, advanced, "idioms")
	require.NotContains(t, advanced, "short sentences")
}

func TestRender_TutoringIncludesMessageAndContext(t *testing.T) {
	e := newEmbeddedEngine(t)
	out, err := e.Render(Tutoring, Vars{
		Language: domain.LanguageEnglish,
		Level:    domain.LevelB2,
		Message:  "I have meeting tomorrow",
		Context: []domain.Turn{
			{Role: domain.RoleModel, Content: "What are your plans?"},
			{Role: domain.RoleUser, Content: "Work, mostly."},
		},
	})
	require.NoError(t, err)
	require.Contains(t, out, "I have meeting tomorrow")
	require.Contains(t, out, "Tutor: What are your plans?")
	require.Contains(t, out, "Learner: Work, mostly.")
	require.Contains(t, out, "1. Feedback:")
	require.Contains(t, out, "2. Corrections:")
	require.Contains(t, out, "3. Next phrase:")
}

func TestRender_TutoringWithoutContext(t *testing.T) {
	e := newEmbeddedEngine(t)
	out, err := e.Render(Tutoring, Vars{Language: domain.LanguageGerman, Level: domain.LevelA2, Message: "Ich bin müde"})
	require.NoError(t, err)
	require.NotContains(t, out, "Conversation so far")
	require.Contains(t, out, "Ich bin müde")
}

func TestRender_StartIsLevelAware(t *testing.T) {
	e := newEmbeddedEngine(t)

	beginner, err := e.Render(Start, Vars{Language: domain.LanguageEnglish, Level: domain.LevelA1})
	require.NoError(t, err)
	require.Contains(t, beginner, "very simple question")

	advanced, err := e.Render(Start, Vars{Language: domain.LanguageEnglish, Level: domain.LevelB2})
	require.NoError(t, err)
	require.Contains(t, advanced, "open question")
}
