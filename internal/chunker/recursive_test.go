package chunker

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, size, overlap int, text string) []string {
	t.Helper()
	r, err := NewRecursive(size, overlap)
	require.NoError(t, err)
	return slices.Collect(r.Chunks(text))
}

func TestRecursive_Paragraphs(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here."

	chunks := collect(t, 30, 0, text)
	assert.Equal(t, []string{"First paragraph here.", "Second paragraph here."}, chunks)

	chunks = collect(t, 100, 0, text)
	assert.Equal(t, []string{text}, chunks)
}

func TestRecursive_Sentences(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."

	chunks := collect(t, 20, 0, text)
	assert.Equal(t, []string{"One two three.", "Four five six.", "Seven eight nine."}, chunks)
}

func TestRecursive_Overlap(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine."

	chunks := collect(t, 34, 16, text)
	assert.Equal(t, []string{
		"One two three. Four five six.",
		"Four five six. Seven eight nine.",
	}, chunks)
}

func TestRecursive_HardCut(t *testing.T) {
	chunks := collect(t, 10, 0, strings.Repeat("a", 25))

	require.Len(t, chunks, 3)
	assert.Equal(t, strings.Repeat("a", 10), chunks[0])
	assert.Equal(t, strings.Repeat("a", 10), chunks[1])
	assert.Equal(t, strings.Repeat("a", 5), chunks[2])
}

func TestRecursive_Heading(t *testing.T) {
	chunks := collect(t, 10, 0, "# Title\n\nBody text.")
	assert.Equal(t, []string{"# Title", "Body text."}, chunks)
}

func TestRecursive_FencedCodeStaysWithFence(t *testing.T) {
	text := "Intro paragraph.\n\n```go\nfmt.Println(\"hi\")\n```\n"

	chunks := collect(t, 30, 0, text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Intro paragraph.", chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "```go"), "chunk %q should open with its fence", chunks[1])
	assert.Contains(t, chunks[1], "fmt.Println")
}

func TestRecursive_List(t *testing.T) {
	text := "Shopping:\n\n- milk\n- eggs\n- bread\n"

	chunks := collect(t, 100, 0, text)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "- milk")
	assert.Contains(t, chunks[0], "- bread")
}

func TestRecursive_Empty(t *testing.T) {
	assert.Empty(t, collect(t, 10, 0, ""))
	assert.Empty(t, collect(t, 10, 0, "   \n\n  "))
}

func TestRecursive_BoundedAndNonEmpty(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40) +
		"\n\n" + strings.Repeat("Ünïcödé wörds ärë cöüntëd äs rünës. ", 30)

	for _, size := range []int{15, 64, 200} {
		for _, overlap := range []int{0, size / 4, size - 1} {
			for _, c := range collect(t, size, overlap, text) {
				assert.NotEmpty(t, strings.TrimSpace(c))
				assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
			}
		}
	}
}

func TestRecursive_WhitespaceRunsDoNotRepeatChunks(t *testing.T) {
	chunks := collect(t, 9, 8, "<36><36>     <37>\n <38><38><38>")
	assert.Equal(t, []string{"<36><36>", "<37>", "<38><38><", "38>"}, chunks)
}

func TestRecursive_NoConsecutiveDuplicates(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	spaces := []string{" ", "  ", "     ", "\n", "\n ", " \n", "\n\n"}

	for i := range 500 {
		var b strings.Builder
		words := 1 + rng.IntN(20)
		for w := range words {
			if w > 0 {
				b.WriteString(spaces[rng.IntN(len(spaces))])
			}
			fmt.Fprintf(&b, "w%d", w)
		}
		size := 6 + rng.IntN(20)
		overlap := rng.IntN(size)
		text := b.String()

		chunks := collect(t, size, overlap, text)
		require.NotEmpty(t, chunks, "case %d: %q", i, text)
		for j, c := range chunks {
			assert.NotEmpty(t, strings.TrimSpace(c))
			assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
			if j > 0 {
				assert.NotEqual(t, chunks[j-1], c, "case %d size %d overlap %d: %q", i, size, overlap, text)
			}
		}
	}
}

func TestRecursive_Restartable(t *testing.T) {
	r, err := NewRecursive(40, 10)
	require.NoError(t, err)

	seq := r.Chunks("Alpha beta gamma. Delta epsilon zeta.\n\nEta theta iota kappa lambda mu.")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestRecursive_StopEarly(t *testing.T) {
	r, err := NewRecursive(10, 0)
	require.NoError(t, err)

	n := 0
	for range r.Chunks(strings.Repeat("b", 100)) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestSplitSentences(t *testing.T) {
	parts := splitSentences("Hi there. Version 1.2 works! Ok?")
	assert.Equal(t, []string{"Hi there.", " Version 1.2 works!", " Ok?"}, parts)
	assert.Equal(t, "Hi there. Version 1.2 works! Ok?", strings.Join(parts, ""))
}

func TestSplitWords(t *testing.T) {
	parts := splitWords("a  bb ccc")
	assert.Equal(t, []string{"a  ", "bb ", "ccc"}, parts)
}
