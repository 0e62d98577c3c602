package chunker

import "iter"

// Fixed cuts text into windows of size runes, each starting size-overlap
// runes after the previous one. The last window may be shorter.
type Fixed struct {
	size    int
	overlap int
}

// NewFixed creates a fixed-window strategy.
func NewFixed(size, overlap int) (*Fixed, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Fixed{size: size, overlap: overlap}, nil
}

// Chunks implements Strategy.
func (f *Fixed) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		step := f.size - f.overlap
		for i := 0; i < len(runes); i += step {
			end := min(i+f.size, len(runes))
			if !yield(string(runes[i:end])) {
				return
			}
		}
	}
}
