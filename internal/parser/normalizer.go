package parser

import (
	"strings"
)

// Normalizer 打分前的文本归一化：小写、非字母数字替换为空格、按空白切分、
// 去停用词、去单字符词，再以单个空格连接。
// 停用词表在创建后只读，可以在多个请求之间共享。
type Normalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer 使用 NLTK 英文停用词表创建，extra 为额外停用词
func NewNormalizer(extra ...string) *Normalizer {
	set := make(map[string]struct{}, len(englishStopwords)+len(extra))
	for _, w := range englishStopwords {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return &Normalizer{stopwords: set}
}

// Normalize 归一化文本。对已归一化的文本再次调用结果不变。
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.tokens(text), " ")
}

// Tokens 归一化后的词集合
func (n *Normalizer) Tokens(text string) map[string]struct{} {
	tokens := n.tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// IsStopword 判断是否为停用词
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

func (n *Normalizer) tokens(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			// 非 ASCII 字母数字一律视为分隔符
			return ' '
		}
	}, text)

	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, f := range fields {
		if len(f) <= 1 || n.IsStopword(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}
