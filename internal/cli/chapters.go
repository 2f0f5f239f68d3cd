package cli

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// chapterWeights orders front and back matter around numbered chapters.
// Keys are lower-case file names without extension.
var chapterWeights = map[string]int{
	"front matter": -6,
	"forward":      -5,
	"foreword":     -4,
	"preface":      -3,
	"introduction": -2,
	"prologue":     -1,
	"conclusion":   1,
	"postscript":   2,
}

var digitsPattern = regexp.MustCompile(`\d+`)

func chapterWeight(path string) int {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return chapterWeights[strings.ToLower(name)]
}

// sortChapters orders chapter files by weight, then by name with numbers
// compared by value.
func sortChapters(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		wi, wj := chapterWeight(paths[i]), chapterWeight(paths[j])
		if wi != wj {
			return wi < wj
		}
		a, b := padNumbers(filepath.Base(paths[i]), filepath.Base(paths[j]), '0')
		return a < b
	})
}

// padNumbers left-pads the numbers found in a and b so that the n-th number
// of each has the same width. Numbers without a counterpart are unchanged.
func padNumbers(a, b string, pad rune) (string, string) {
	ma := digitsPattern.FindAllStringIndex(a, -1)
	mb := digitsPattern.FindAllStringIndex(b, -1)
	n := min(len(ma), len(mb))

	widths := make([]int, n)
	for i := range n {
		widths[i] = max(ma[i][1]-ma[i][0], mb[i][1]-mb[i][0])
	}
	return padMatches(a, ma[:n], widths, pad), padMatches(b, mb[:n], widths, pad)
}

func padMatches(s string, matches [][]int, widths []int, pad rune) string {
	if len(matches) == 0 {
		return s
	}
	var out strings.Builder
	last := 0
	for i, m := range matches {
		out.WriteString(s[last:m[0]])
		out.WriteString(strings.Repeat(string(pad), widths[i]-(m[1]-m[0])))
		out.WriteString(s[m[0]:m[1]])
		last = m[1]
	}
	out.WriteString(s[last:])
	return out.String()
}
