package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAnswerKeyStart(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty page", "", false},
		{"whitespace only", "  \n\t  ", false},
		{"plain question text", "1. Solve for x: 2x + 3 = 7", false},
		{"chinese answer heading", "参考答案", true},
		{"chinese solutions heading", "解析版", true},
		{"short answer marker", "第二部分 答案", true},
		{"short solutions marker", "试题解析", true},
		{"english solutions heading", "Section B: Solutions", true},
		{"english answer heading", "Answer Key", true},
		{"marker split across lines", "参考\n答案", true},
		{"marker spaced out by layout", "A n s w e r   K e y", true},
		{"question mentioning sets", "Let A be the set of even numbers", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAnswerKeyStart(tt.text))
		})
	}
}
