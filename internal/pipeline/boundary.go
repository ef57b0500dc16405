// Package pipeline runs the per-document processing flow: page segmentation,
// answer-key boundary detection, question extraction, and persistence.
package pipeline

import (
	"strings"
	"unicode"
)

// answerKeyMarkers are the headings that open the answer/solutions section of
// an exam paper. Matching any of them on a page stops processing before that
// page, so solution text never leaks into the question bank.
var answerKeyMarkers = []string{
	"解析版",
	"参考答案",
	"答案",
	"解析",
	"Solutions",
	"Answer",
}

// IsAnswerKeyStart reports whether the page text marks the start of the
// answer-key section. All whitespace is stripped first so markers split
// across lines or padded by layout artifacts still match.
func IsAnswerKeyStart(pageText string) bool {
	compact := stripWhitespace(pageText)
	if compact == "" {
		return false
	}
	for _, marker := range answerKeyMarkers {
		if strings.Contains(compact, marker) {
			return true
		}
	}
	return false
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
