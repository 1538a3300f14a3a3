package prompt

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CyrillicRatio 返回西里尔字符占全部字符的比例
func CyrillicRatio(text string) float64 {
	text = norm.NFC.String(text)
	total, cyrillic := 0, 0
	for _, r := range text {
		total++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cyrillic) / float64(total)
}

// IsNonEnglish 西里尔字符比例严格超过阈值时视为非英文
func IsNonEnglish(text string, threshold float64) bool {
	return CyrillicRatio(text) > threshold
}

// splitWords 小写化并按非字母字符切词
func splitWords(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matches 判断单词是否命中规则
func (r keywordRule) matches(word string) bool {
	for _, w := range r.Words {
		if word == w {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(word, p) {
			return true
		}
	}
	return false
}

// TranslateKeywords 按出现顺序翻译已知关键词，去重后最多保留 limit 个
func TranslateKeywords(text string, limit int) []string {
	lower := strings.ToLower(norm.NFC.String(text))
	type hit struct {
		pos     int
		english string
	}
	var hits []hit
	seen := make(map[string]bool)

	// 多词短语按原文位置计入
	for _, rule := range keywordTable {
		for _, phrase := range rule.Phrases {
			if idx := strings.Index(lower, phrase); idx >= 0 && !seen[rule.English] {
				seen[rule.English] = true
				hits = append(hits, hit{pos: idx, english: rule.English})
			}
		}
	}

	offset := 0
	for _, word := range splitWords(text) {
		pos := strings.Index(lower[offset:], word)
		if pos >= 0 {
			pos += offset
			offset = pos + len(word)
		}
		for _, rule := range keywordTable {
			if !rule.matches(word) {
				continue
			}
			if !seen[rule.English] {
				seen[rule.English] = true
				hits = append(hits, hit{pos: pos, english: rule.English})
			}
			break
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, h.english)
	}
	return out
}
