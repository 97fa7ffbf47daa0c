package tabular

import (
	"bufio"
	"bytes"
)

// candidateDelimiters are tried in order; the first wins a tie.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// maxHeaderPeek bounds how much of a file is inspected to guess its delimiter.
const maxHeaderPeek = 64 * 1024

// guessDelimiter picks the candidate that occurs most often, outside
// quotes, in the first line available from br. Nothing is consumed.
// Comma is the fallback.
func guessDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(maxHeaderPeek)
	if i := bytes.IndexAny(head, "\r\n"); i >= 0 {
		head = head[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(head) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
