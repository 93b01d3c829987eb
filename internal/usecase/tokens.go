package usecase

import "github.com/tidwall/gjson"

// ExtractTokens reads token_usage.total_tokens from model usage metadata.
// Missing, non-numeric or malformed metadata counts as zero; negative
// counts are clamped to zero.
func ExtractTokens(metadata []byte) int {
	if len(metadata) == 0 || !gjson.ValidBytes(metadata) {
		return 0
	}
	total := gjson.GetBytes(metadata, "token_usage.total_tokens")
	if total.Type != gjson.Number {
		return 0
	}
	if n := total.Int(); n > 0 {
		return int(n)
	}
	return 0
}
