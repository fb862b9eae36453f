// Package parser reads flashcard decks written in markdown.
//
// A card starts with a line beginning "Q:" (the source text) followed by a
// line beginning "A:" (the target text). Lines that follow either prefix
// continue that side. A line holding only "---" ends the current card, and
// headings outside a card are ignored.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	sourcePrefix = "Q:"
	targetPrefix = "A:"
	separator    = "---"
)

// MaxLineSize is the longest line Parse accepts. Longer lines, such as
// inline images, make Parse fail with bufio.ErrTooLong.
const MaxLineSize = 16 << 20

// Entry is one parsed card.
type Entry struct {
	SourceText string
	TargetText string
	// Line is the 1-based line the card starts on.
	Line int
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

type side int

const (
	none side = iota
	source
	target
)

// Parse reads from an io.Reader and extracts all complete cards.
// Cards missing either side are dropped.
func Parse(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		cur     Entry
		lines   [2][]string
		at      = none
	)

	flush := func() {
		cur.SourceText = strings.TrimSpace(strings.Join(lines[0], "\n"))
		cur.TargetText = strings.TrimSpace(strings.Join(lines[1], "\n"))
		if cur.SourceText != "" && cur.TargetText != "" {
			entries = append(entries, cur)
		}
		cur = Entry{}
		lines = [2][]string{}
		at = none
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == separator:
			flush()
		case strings.HasPrefix(line, sourcePrefix):
			if at != none {
				flush()
			}
			cur.Line = n
			at = source
			lines[0] = append(lines[0], trimPrefix(line, sourcePrefix))
		case strings.HasPrefix(line, targetPrefix) && at != none:
			at = target
			lines[1] = append(lines[1], trimPrefix(line, targetPrefix))
		case at == source:
			lines[0] = append(lines[0], line)
		case at == target:
			lines[1] = append(lines[1], line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func trimPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
