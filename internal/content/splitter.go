package content

import "fmt"

// DefaultMaxPartChars is the part budget used when none is configured.
const DefaultMaxPartChars = 5000

// Splitter divides a document into parts.
type Splitter interface {
	Split(items []Item) []Part
}

// BalancedSplitter divides a document into parts of roughly equal spoken
// length, each at most MaxPartChars long. An item is never split, so a
// single item longer than the budget ends up alone in an oversized part.
type BalancedSplitter struct {
	maxPartChars int
}

// NewBalancedSplitter returns a splitter with the given budget.
func NewBalancedSplitter(maxPartChars int) (*BalancedSplitter, error) {
	if maxPartChars <= 0 {
		return nil, fmt.Errorf("max part characters must be positive, got %d", maxPartChars)
	}
	return &BalancedSplitter{maxPartChars: maxPartChars}, nil
}

// MaxPartChars returns the configured budget.
func (s *BalancedSplitter) MaxPartChars() int { return s.maxPartChars }

// Split returns parts whose concatenation equals items.
func (s *BalancedSplitter) Split(items []Item) []Part {
	if len(items) == 0 {
		return nil
	}
	total := TotalLength(items)
	if total == 0 {
		return []Part{append(Part(nil), items...)}
	}

	numParts := (total + s.maxPartChars - 1) / s.maxPartChars
	target := total / numParts

	var (
		parts  []Part
		cur    Part
		curLen int
		spoken bool // cur holds at least one item with spoken content
	)
	closeCur := func() {
		parts = append(parts, cur)
		cur, curLen, spoken = nil, 0, false
	}

	for _, item := range items {
		n := SpokenLength(item)

		// Silence never opens a part.
		if n == 0 {
			if len(cur) == 0 && len(parts) > 0 {
				parts[len(parts)-1] = append(parts[len(parts)-1], item)
			} else {
				cur = append(cur, item)
			}
			continue
		}

		if curLen+n < target {
			cur = append(cur, item)
			curLen += n
			spoken = true
			continue
		}

		if !spoken {
			cur = append(cur, item)
			curLen += n
			closeCur()
			continue
		}

		roundDown := target - curLen
		roundUp := curLen + n - target
		if roundDown < roundUp || curLen+n > s.maxPartChars {
			closeCur()
			cur = Part{item}
			curLen = n
			spoken = true
			continue
		}

		cur = append(cur, item)
		closeCur()
	}

	switch {
	case len(cur) == 0:
	case !spoken && len(parts) > 0:
		parts[len(parts)-1] = append(parts[len(parts)-1], cur...)
	default:
		parts = append(parts, cur)
	}
	return parts
}

// WholeSplitter keeps the whole document in a single part.
type WholeSplitter struct{}

func (WholeSplitter) Split(items []Item) []Part {
	if len(items) == 0 {
		return nil
	}
	return []Part{append(Part(nil), items...)}
}
