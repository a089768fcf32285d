package mapreduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	got := Reduce([]map[string]int{
		{"fox": 2, "dog": 1},
		{"fox": 1, "farm": 3},
		nil,
	})
	assert.Equal(t, map[string]int{"fox": 3, "dog": 1, "farm": 3}, got)
}

func TestTopKeywords(t *testing.T) {
	counts := Reduce([]map[string]int{
		Map("fox fox fox farm farm porch"),
		Map("fox farm"),
	})
	assert.Equal(t, []string{"fox:4", "farm:3", "porch:1"}, TopKeywords(counts, 5))
	assert.Equal(t, []string{"fox:4"}, TopKeywords(counts, 1))
	assert.Empty(t, TopKeywords(counts, 0))
}

func TestInvalidKeywordsDropped(t *testing.T) {
	counts := map[string]int{"key:": 9, "f(x": 8, `"quoted`: 7, "x_train": 1, "f(x)": 1}
	assert.Equal(t, []string{"f(x):1", "x_train:1"}, TopKeywords(counts, 10))
}
