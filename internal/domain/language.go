package domain

// Language is a target language the tutor can practise.
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageUkrainian Language = "ukrainian"
	LanguagePolish    Language = "polish"
	LanguageGerman    Language = "german"
)

// Languages lists every language the service knows about, in display order.
var Languages = []Language{LanguageEnglish, LanguageUkrainian, LanguagePolish, LanguageGerman}

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Beginner reports whether the level is A1 or A2.
func (l Level) Beginner() bool {
	return l == LevelA1 || l == LevelA2
}
