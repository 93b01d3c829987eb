package usecase

import (
	"regexp"
	"strings"

	"tutor-agent/internal/domain"
)

const (
	fallbackExplanation = "Response received."
	fallbackFollowUp    = "Please continue."
)

type section int

const (
	sectionNone section = iota
	sectionFeedback
	sectionCorrections
	sectionNextPhrase
)

// sectionHeader matches "1. Feedback:", "**Corrections:**", "## Next phrase: ..."
// and captures any text following the colon on the same line.
var sectionHeader = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\d+[.)]\s*)?(?:\*\*)?\s*(feedback|corrections?|next\s+phrase)\s*(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.*)$`)

var bullet = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

type parsedReply struct {
	Explanation string
	FollowUp    string
	Corrections []domain.Correction
}

// parseReply reads the numbered-section reply requested by the tutoring
// template. It never fails: missing sections fall back to fixed text and
// unreadable correction lines are skipped.
func parseReply(raw string) parsedReply {
	var feedback, next []string
	var corrections []domain.Correction

	current := sectionNone
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			current = sectionFor(m[1])
			line = m[2]
		}
		switch current {
		case sectionFeedback:
			feedback = append(feedback, line)
		case sectionNextPhrase:
			next = append(next, line)
		case sectionCorrections:
			if c, ok := parseCorrectionLine(line); ok {
				corrections = append(corrections, c)
			}
		}
	}

	out := parsedReply{
		Explanation: joinSection(feedback),
		FollowUp:    joinSection(next),
		Corrections: corrections,
	}
	if out.Explanation == "" {
		out.Explanation = fallbackExplanation
	}
	if out.FollowUp == "" {
		out.FollowUp = fallbackFollowUp
	}
	if out.Corrections == nil {
		out.Corrections = []domain.Correction{}
	}
	return out
}

func sectionFor(name string) section {
	switch n := strings.ToLower(name); {
	case n == "feedback":
		return sectionFeedback
	case strings.HasPrefix(n, "correction"):
		return sectionCorrections
	default:
		return sectionNextPhrase
	}
}

// parseCorrectionLine reads "- TYPE | original | corrected | category | detail".
func parseCorrectionLine(line string) (domain.Correction, bool) {
	line = bullet.ReplaceAllString(strings.TrimSpace(line), "")
	if line == "" || strings.EqualFold(strings.Trim(line, ". "), "none") {
		return domain.Correction{}, false
	}
	parts := strings.Split(line, "|")
	if len(parts) != 5 {
		return domain.Correction{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	kind, ok := domain.ParseCorrectionKind(strings.Trim(parts[0], "[]*"))
	if !ok {
		return domain.Correction{}, false
	}
	c, err := domain.NewCorrection(unquote(parts[1]), unquote(parts[2]), []string{parts[3], parts[4]}, kind)
	if err != nil {
		return domain.Correction{}, false
	}
	return c, true
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(s, `"'“”`))
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
