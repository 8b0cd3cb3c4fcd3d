package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fineprint/internal/entity"
)

var reMarker = regexp.MustCompile(`(?m)^\[Page (\d+)\]$`)

// Marker formats the page marker for 1-based page n.
func Marker(n int) string {
	return fmt.Sprintf("[Page %d]", n)
}

// JoinPages renders pages with markers, numbering from first.
func JoinPages(pages []string, first int) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Marker(first + i))
		b.WriteString("\n")
		b.WriteString(p)
	}
	return b.String()
}

// Page is one marked page recovered from a joined text.
type Page struct {
	Number int
	Text   string
}

// SplitPages parses text produced by JoinPages back into pages.
// Text before the first marker is ignored.
func SplitPages(text string) []Page {
	locs := reMarker.FindAllStringSubmatchIndex(text, -1)
	pages := make([]Page, 0, len(locs))
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := strings.TrimPrefix(text[bodyStart:bodyEnd], "\n")
		pages = append(pages, Page{Number: n, Text: strings.TrimRight(body, "\n")})
	}
	return pages
}

// CountPages returns the highest page number marked in text.
func CountPages(text string) int {
	max := 0
	for _, p := range SplitPages(text) {
		if p.Number > max {
			max = p.Number
		}
	}
	return max
}

// SliceRange keeps only the marked pages inside r. Markers are preserved so page references
// in downstream output still point at source pages. A nil range returns text unchanged.
func SliceRange(text string, r *entity.PageRange) string {
	if r == nil {
		return text
	}
	var b strings.Builder
	for _, p := range SplitPages(text) {
		if p.Number < r.Start || p.Number > r.End {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Marker(p.Number))
		b.WriteString("\n")
		b.WriteString(p.Text)
	}
	return b.String()
}
