package domain

import (
	"strings"
	"unicode"
)

// minBodyShare is the fraction of the body budget a word-boundary cut must
// keep; shorter boundaries lose to a hard rune cut.
const minBodyShare = 0.6

// FitCaption joins body and the trailing tag/link block, truncating to at
// most limit runes. The tag block is preserved verbatim: only the body is
// ever shortened. Cuts never split a rune and prefer the nearest preceding
// whitespace or punctuation boundary when that keeps at least 60% of the
// body budget.
func FitCaption(body, tagBlock string, limit int) string {
	body = strings.TrimSpace(body)
	tagBlock = strings.TrimSpace(tagBlock)

	full := join(body, tagBlock)
	if limit <= 0 || runeLen(full) <= limit {
		return full
	}

	budget := limit
	if tagBlock != "" {
		budget = limit - runeLen(tagBlock) - 2 // separator "\n\n"
	}
	if budget <= 0 {
		// Tag block alone exceeds the limit; it still wins over the body.
		return truncateRunes(tagBlock, limit)
	}

	return join(truncateBody(body, budget), tagBlock)
}

func truncateBody(body string, budget int) string {
	runes := []rune(body)
	if len(runes) <= budget {
		return body
	}

	cut := budget
	minCut := int(float64(budget) * minBodyShare)
	for i := budget; i > minCut; i-- {
		if isBoundary(runes[i-1]) {
			cut = i - 1
			break
		}
	}

	return strings.TrimRight(string(runes[:cut]), " \t\n.,;:!?-")
}

func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func runeLen(s string) int {
	return len([]rune(s))
}

func join(body, tagBlock string) string {
	switch {
	case body == "":
		return tagBlock
	case tagBlock == "":
		return body
	default:
		return body + "\n\n" + tagBlock
	}
}
