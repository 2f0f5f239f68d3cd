package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPadNumbers(t *testing.T) {
	tests := []struct {
		a, b         string
		pad          rune
		wantA, wantB string
	}{
		{"Chapter 1.txt", "Chapter 10.txt", '0', "Chapter 01.txt", "Chapter 10.txt"},
		{"Chapter 24.txt", "Chapter 5.txt", '0', "Chapter 24.txt", "Chapter 05.txt"},
		{"1.25.7", "8.3.80", '0', "1.25.07", "8.03.80"},
		{"5.25", "abcd 80.3 abc 80 def 40", '0', "05.25", "abcd 80.03 abc 80 def 40"},
		{"", "", '0', "", ""},
		{"", "second", '0', "", "second"},
		{"1", "2", '0', "1", "2"},
		{"Chapter 1.txt", "Chapter 10.txt", ' ', "Chapter  1.txt", "Chapter 10.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			a, b := padNumbers(tt.a, tt.b, tt.pad)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
		})
	}
}

func TestSortChapters(t *testing.T) {
	paths := []string{
		"/book/Chapter 10.txt",
		"/book/Conclusion.txt",
		"/book/Chapter 2.txt",
		"/book/Preface.txt",
		"/book/Postscript.txt",
		"/book/Chapter 1.txt",
		"/book/Front Matter.txt",
		"/book/Introduction.txt",
	}
	sortChapters(paths)

	assert.Equal(t, []string{
		"/book/Front Matter.txt",
		"/book/Preface.txt",
		"/book/Introduction.txt",
		"/book/Chapter 1.txt",
		"/book/Chapter 2.txt",
		"/book/Chapter 10.txt",
		"/book/Conclusion.txt",
		"/book/Postscript.txt",
	}, paths)
}
