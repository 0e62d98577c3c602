package chunker

import (
	"bytes"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// blockSeparator joins pieces that come from different top-level blocks.
const blockSeparator = "\n\n"

// Recursive splits text at natural boundaries while bounding every chunk to
// size runes. Top-level blocks (paragraphs, headings, lists, code fences) are
// found with the goldmark parser; blocks that are too long are cut at
// sentence ends, then at whitespace, then at exactly size runes. Pieces are
// then packed greedily and consecutive chunks share up to overlap runes of
// trailing pieces.
type Recursive struct {
	size    int
	overlap int
	parser  goldmark.Markdown
}

// piece is an indivisible unit of packing. sep is written before text when
// the piece follows another piece in the same chunk.
type piece struct {
	text string
	sep  string
}

// NewRecursive creates a structure-aware strategy.
func NewRecursive(size, overlap int) (*Recursive, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Recursive{
		size:    size,
		overlap: overlap,
		parser:  goldmark.New(),
	}, nil
}

// Chunks implements Strategy.
func (r *Recursive) Chunks(source string) iter.Seq[string] {
	return func(yield func(string) bool) {
		r.merge(r.pieces(source), yield)
	}
}

// pieces returns the ordered packing units of source, none longer than size.
func (r *Recursive) pieces(source string) []piece {
	var out []piece
	for _, block := range r.blocks([]byte(source)) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		// Whitespace-only parts are folded into the next piece's separator.
		sep := blockSeparator
		for _, part := range r.split(block, 0) {
			if strings.TrimSpace(part) == "" {
				sep += part
				continue
			}
			out = append(out, piece{text: part, sep: sep})
			sep = ""
		}
	}
	return out
}

// split cuts s until every part fits in size. level selects the boundary:
// 0 sentences, 1 whitespace, 2 hard cut.
func (r *Recursive) split(s string, level int) []string {
	if utf8.RuneCountInString(s) <= r.size {
		return []string{s}
	}

	var parts []string
	switch level {
	case 0:
		parts = splitSentences(s)
	case 1:
		parts = splitWords(s)
	default:
		return hardCut(s, r.size)
	}

	if len(parts) <= 1 {
		return r.split(s, level+1)
	}

	var out []string
	for _, p := range parts {
		out = append(out, r.split(p, level+1)...)
	}
	return out
}

// merge packs pieces into chunks of at most size runes and yields them.
func (r *Recursive) merge(pieces []piece, yield func(string) bool) {
	var window []piece
	total := 0
	// fresh reports whether the window holds text not yet yielded.
	fresh := false

	for _, p := range pieces {
		n := utf8.RuneCountInString(p.text)
		sepLen := utf8.RuneCountInString(p.sep)

		if len(window) > 0 && total+sepLen+n > r.size {
			if fresh && !emit(window, yield) {
				return
			}
			fresh = false
			// Keep a tail of at most overlap runes that still leaves room for p.
			for len(window) > 0 && (total > r.overlap || total+sepLen+n > r.size) {
				total -= utf8.RuneCountInString(window[0].text)
				if len(window) > 1 {
					total -= utf8.RuneCountInString(window[1].sep)
				}
				window = window[1:]
			}
		}

		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, p)
		total += n
		if strings.TrimSpace(p.text) != "" {
			fresh = true
		}
	}

	if fresh {
		emit(window, yield)
	}
}

func emit(window []piece, yield func(string) bool) bool {
	var b strings.Builder
	for i, p := range window {
		if i > 0 {
			b.WriteString(p.sep)
		}
		b.WriteString(p.text)
	}
	chunk := strings.TrimSpace(b.String())
	if chunk == "" {
		return true
	}
	return yield(chunk)
}

// blocks cuts source at the first line of every top-level markdown block.
// The returned slices cover source without gaps.
func (r *Recursive) blocks(source []byte) []string {
	doc := r.parser.Parser().Parse(text.NewReader(source))

	var starts []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		start, ok := blockStart(n, source)
		if !ok {
			continue
		}
		if len(starts) > 0 && start <= starts[len(starts)-1] {
			continue
		}
		starts = append(starts, start)
	}

	if len(starts) == 0 {
		return []string{string(source)}
	}
	starts[0] = 0

	out := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(source)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		out = append(out, string(source[start:end]))
	}
	return out
}

// blockStart finds the offset of the first source line belonging to n.
// Container blocks (lists, quotes) carry no lines themselves, so their
// descendants are inspected.
func blockStart(n ast.Node, source []byte) (int, bool) {
	start := -1
	consider := func(pos int) {
		if start < 0 || pos < start {
			start = pos
		}
	}

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock {
			if lines := c.Lines(); lines != nil && lines.Len() > 0 {
				consider(lines.At(0).Start)
			}
		}
		switch node := c.(type) {
		case *ast.Text:
			consider(node.Segment.Start)
		case *ast.FencedCodeBlock:
			if node.Info != nil {
				consider(node.Info.Segment.Start)
			} else if lines := node.Lines(); lines.Len() > 0 {
				// The opening fence is the line before the first code line.
				if first := lineStart(source, lines.At(0).Start); first > 0 {
					consider(lineStart(source, first-1))
				}
			}
		}
		return ast.WalkContinue, nil
	})

	if start < 0 {
		return 0, false
	}
	return lineStart(source, start), true
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

// splitSentences cuts after '.', '!', '?' or a newline followed by whitespace.
// Parts keep their original whitespace so that joining them restores s.
func splitSentences(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?', '\n':
			end := i + 1
			if end < len(s) {
				next, _ := utf8.DecodeRuneInString(s[end:])
				if !unicode.IsSpace(next) {
					continue
				}
			}
			parts = append(parts, s[start:end])
			start = end
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// splitWords cuts after every run of whitespace.
func splitWords(s string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, c := range s {
		space := unicode.IsSpace(c)
		if inSpace && !space {
			parts = append(parts, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func hardCut(s string, size int) []string {
	runes := []rune(s)
	parts := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		parts = append(parts, string(runes[i:min(i+size, len(runes))]))
	}
	return parts
}
