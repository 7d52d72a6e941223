package textops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummary(t *testing.T) {
	removeTags, err := NewRemovePattern(`<[^>]+>`, true)
	if err != nil {
		t.Fatalf("build remove op: %v", err)
	}

	ops := []Operation{
		Prepend{Text: "A photo of "},
		Append{Text: "shot on film, golden hour light"},
		FindReplace{Find: "cat", Replace: "kitten", UseRegex: true},
		Trim{},
		CaseConvert{Case: CaseSentence},
		removeTags,
	}

	want := "Prepend 'A photo of '; " +
		"Append 'shot on film, golden...'; " +
		"Replace 'cat' with 'kitten' (regex); " +
		"Trim whitespace; " +
		"Convert to sentencecase; " +
		"Remove pattern '<[^>]+>' (regex)"
	assert.Equal(t, want, Summary(ops))
}

func TestSummaryTruncatesByRune(t *testing.T) {
	got := Summary([]Operation{Prepend{Text: "一二三四五六七八九十一二三四五六七八九十多"}})
	assert.Equal(t, "Prepend '一二三四五六七八九十一二三四五六七八九十...'", got)
}
