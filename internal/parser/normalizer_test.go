package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"空文本", "", ""},
		{"大小写和标点", "Senior Go/Python Engineer, 5+ years!", "senior go python engineer years"},
		{"停用词和单字符", "I am a C developer and it is fun", "developer fun"},
		{"非 ASCII 视为分隔", "Café—résumé", "caf sum"},
		{"多余空白", "  kubernetes \n\t docker  ", "kubernetes docker"},
		{"数字保留", "Worked 2018 to 2021", "worked 2018 2021"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{
		sampleResume,
		"We're looking for a Go (golang) engineer; MySQL & Redis a plus.",
		"don't shouldn't won't",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once))
	}
}

func TestNormalizerExtraStopwords(t *testing.T) {
	n := NewNormalizer(" Resume ", "")
	assert.Equal(t, "engineer", n.Normalize("resume engineer"))
	assert.True(t, n.IsStopword("resume"))
	assert.False(t, NewNormalizer().IsStopword("resume"))
}

func TestTokens(t *testing.T) {
	got := NewNormalizer().Tokens("Go go GO and Redis")
	assert.Equal(t, map[string]struct{}{"go": {}, "redis": {}}, got)
}

func TestDefaultStopwordsReturnsCopy(t *testing.T) {
	words := DefaultStopwords()
	words[0] = "changed"
	assert.Equal(t, "i", englishStopwords[0])
}
