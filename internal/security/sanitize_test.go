package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize_StripsControlBytes(t *testing.T) {
	in := "He\x00llo\x07 wor\x1bld\x1f!"
	require.Equal(t, "Hello world!", Sanitize(in))
}

func TestSanitize_KeepsTabNewlineCarriageReturn(t *testing.T) {
	in := "line one\r\n\tline two\n"
	require.Equal(t, in, Sanitize(in))
}

func TestSanitize_KeepsMultiByteText(t *testing.T) {
	in := "Моя\x01 компанія\x02 rośnie 🚀"
	require.Equal(t, "Моя компанія rośnie 🚀", Sanitize(in))
}

func TestSanitize_PreservesOrderAndIsIdempotent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 64; i++ {
		b.WriteByte(byte(i))
		b.WriteString("ab")
	}
	once := Sanitize(b.String())
	require.Equal(t, once, Sanitize(once))

	for i := 0; i < 0x20; i++ {
		if i == '\t' || i == '\n' || i == '\r' {
			continue
		}
		require.NotContains(t, once, string(rune(i)))
	}
	require.Equal(t, 64, strings.Count(once, "ab"))
	require.Contains(t, once, "ab\tab\nab")
}

func TestSanitize_Empty(t *testing.T) {
	require.Equal(t, "", Sanitize(""))
}
