package rag

import "strings"

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 50

	// DefaultChunkOverlap is how many characters neighbouring chunks share.
	DefaultChunkOverlap = 10
)

// SplitText splits text into overlapping chunks using a fixed-size sliding
// window. The text is cut preferentially at newline boundaries: lines are
// packed into a chunk until adding the next line would exceed chunkSize, then
// the window slides forward keeping at most overlap characters of trailing
// context. A single line longer than chunkSize is kept whole rather than cut
// mid-word.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}

	var chunks []string
	var window []string
	for _, line := range lines {
		if len(window) > 0 && joinedLen(window)+1+len(line) > chunkSize {
			chunks = append(chunks, strings.Join(window, "\n"))
			// Retain a tail of the window as overlap for the next chunk.
			for len(window) > 0 && (joinedLen(window) > overlap || joinedLen(window)+1+len(line) > chunkSize) {
				window = window[1:]
			}
		}
		window = append(window, line)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, "\n"))
	}
	return chunks
}

// joinedLen is the length of parts joined with a single newline.
func joinedLen(parts []string) int {
	n := 0
	for i, p := range parts {
		if i > 0 {
			n++
		}
		n += len(p)
	}
	return n
}
