// Package questions mines marker comments (TODO, FIXME, ...) from
// changed files and commit messages into a ranked open-questions section.
package questions

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Marker is one of the recognized annotation keywords.
type Marker string

const (
	MarkerTODO     Marker = "TODO"
	MarkerFIXME    Marker = "FIXME"
	MarkerQUESTION Marker = "QUESTION"
	MarkerTBD      Marker = "TBD"
	MarkerHACK     Marker = "HACK"
	MarkerXXX      Marker = "XXX"
	MarkerNOTE     Marker = "NOTE"
	MarkerREVIEW   Marker = "REVIEW"
)

// renderOrder fixes the priority of marker types in the rendered output.
var renderOrder = []Marker{
	MarkerFIXME, MarkerTODO, MarkerQUESTION, MarkerREVIEW,
	MarkerHACK, MarkerTBD, MarkerXXX, MarkerNOTE,
}

// Annotation is a single mined marker occurrence.
type Annotation struct {
	Marker  Marker
	Text    string
	Source  string // file path or "Commit <hash8>"
	Line    int    // 1-based; 0 for commit messages
	Context string
}

const (
	maxFilesScanned = 15
	maxFileSize     = 2 * 1024 * 1024
	maxLineLength   = 200
	maxPerType      = 4
	totalLimit      = 12
	minMatchLength  = 5
)

// markerPatterns match the literal keyword or its @keyword form, an
// optional colon, and 3-100 captured characters.
var markerPatterns = map[Marker]*regexp.Regexp{
	MarkerTODO:     regexp.MustCompile(`(?i)(?:TODO|@todo):?\s*(.{3,100})`),
	MarkerFIXME:    regexp.MustCompile(`(?i)(?:FIXME|@fixme):?\s*(.{3,100})`),
	MarkerQUESTION: regexp.MustCompile(`(?i)(?:QUESTION|@question|\?{2,}):?\s*(.{3,100})`),
	MarkerTBD:      regexp.MustCompile(`(?i)(?:TBD|@tbd):?\s*(.{3,100})`),
	MarkerHACK:     regexp.MustCompile(`(?i)(?:HACK|@hack):?\s*(.{3,100})`),
	MarkerXXX:      regexp.MustCompile(`(?i)(?:XXX|@xxx):?\s*(.{3,100})`),
	MarkerNOTE:     regexp.MustCompile(`(?i)(?:NOTE|@note):?\s*(.{3,100})`),
	MarkerREVIEW:   regexp.MustCompile(`(?i)(?:REVIEW|@review):?\s*(.{3,100})`),
}

// CommitSource is the subset of commit data the miner scans.
type CommitSource struct {
	Hash    string
	Subject string
	Body    string
}

// Mine scans candidate files and commit messages for annotations and
// renders the open-questions markdown section.
func Mine(filePaths []string, repoRoot string, commits []CommitSource) string {
	return Render(Collect(filePaths, repoRoot, commits))
}

// Collect gathers annotations from at most the first 15 files plus all
// commit messages. File read problems skip the file, never fail the scan.
func Collect(filePaths []string, repoRoot string, commits []CommitSource) []Annotation {
	var found []Annotation

	limit := len(filePaths)
	if limit > maxFilesScanned {
		limit = maxFilesScanned
	}

	for _, path := range filePaths[:limit] {
		full := filepath.Join(repoRoot, path)
		info, err := os.Stat(full)
		if err != nil || info.IsDir() || info.Size() > maxFileSize {
			continue
		}

		content, err := readText(full)
		if err != nil {
			continue
		}

		for lineNum, line := range strings.Split(content, "\n") {
			if len(line) > maxLineLength {
				line = line[:maxLineLength] + "..."
			}
			found = append(found, scanLine(line, path, lineNum+1)...)
		}
	}

	for _, c := range commits {
		text := c.Subject + " " + c.Body
		source := "Commit " + shortHash(c.Hash)
		for _, a := range scanLine(text, source, 0) {
			a.Context = c.Subject
			found = append(found, a)
		}
	}

	return found
}

// scanLine applies every marker pattern to one line of text.
func scanLine(line, source string, lineNum int) []Annotation {
	var result []Annotation
	for marker, pattern := range markerPatterns {
		for _, m := range pattern.FindAllStringSubmatch(line, -1) {
			text := strings.TrimRight(strings.TrimSpace(m[1]), ".,;:")
			if len(text) <= minMatchLength {
				continue
			}
			result = append(result, Annotation{
				Marker:  marker,
				Text:    text,
				Source:  source,
				Line:    lineNum,
				Context: snippet(line),
			})
		}
	}
	return result
}

// Render formats annotations in fixed marker priority, at most 4 per
// type and 12 overall, noting how many were left out.
func Render(annotations []Annotation) string {
	if len(annotations) == 0 {
		return "## Open Questions\n\nNo open questions found in recent changes."
	}

	byMarker := make(map[Marker][]Annotation)
	for _, a := range annotations {
		byMarker[a.Marker] = append(byMarker[a.Marker], a)
	}

	var out []string
	out = append(out, "## Open Questions\n")

	count := 0
	for _, marker := range renderOrder {
		group := byMarker[marker]
		if len(group) == 0 || count >= totalLimit {
			continue
		}

		out = append(out, fmt.Sprintf("### %ss\n", marker))

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Source < group[j].Source
		})

		typeLimit := maxPerType
		if remaining := totalLimit - count; remaining < typeLimit {
			typeLimit = remaining
		}
		if len(group) < typeLimit {
			typeLimit = len(group)
		}

		for _, a := range group[:typeLimit] {
			out = append(out, fmt.Sprintf("%d. **%s**", count+1, a.Text))
			out = append(out, fmt.Sprintf("   - *%s:%d*", a.Source, a.Line))
			if a.Context != "" && a.Context != a.Text {
				out = append(out, fmt.Sprintf("   - Context: `%s`", a.Context))
			}
			out = append(out, "")
			count++
		}
	}

	if len(annotations) > count {
		out = append(out, fmt.Sprintf("*... and %d more questions found*", len(annotations)-count))
	}

	return strings.Join(out, "\n")
}

// snippet trims and bounds a context line to 80 characters.
func snippet(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 80 {
		return trimmed[:80] + "..."
	}
	return trimmed
}

// readText reads a file as UTF-8, falling back to a Latin-1 decode for
// legacy encodings.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	if hash == "" {
		return "unknown"
	}
	return hash
}
