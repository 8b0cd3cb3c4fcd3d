package extract

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/fineprint/internal/entity"
)

func TestDocumentTextKeepsEmptyPages(t *testing.T) {
	doc := Document{Pages: []string{"Title page", "", "Article 1"}}

	if got := doc.PageCount(); got != 3 {
		t.Fatalf("PageCount = %d, want 3", got)
	}
	text := doc.Text()
	for _, m := range []string{"[Page 1]", "[Page 2]", "[Page 3]"} {
		if !strings.Contains(text, m) {
			t.Errorf("text is missing marker %s:\n%s", m, text)
		}
	}

	pages := SplitPages(text)
	if len(pages) != 3 {
		t.Fatalf("SplitPages returned %d pages, want 3", len(pages))
	}
	if pages[1].Number != 2 || pages[1].Text != "" {
		t.Errorf("page 2 = %+v, want empty page numbered 2", pages[1])
	}
	if pages[2].Text != "Article 1" {
		t.Errorf("page 3 text = %q", pages[2].Text)
	}
	if CountPages(text) != 3 {
		t.Errorf("CountPages = %d, want 3", CountPages(text))
	}
}

func TestSliceRange(t *testing.T) {
	text := JoinPages([]string{"one", "two", "three", "four"}, 1)

	got := SliceRange(text, &entity.PageRange{Start: 2, End: 3})
	want := "[Page 2]\ntwo\n\n[Page 3]\nthree"
	if got != want {
		t.Fatalf("SliceRange = %q, want %q", got, want)
	}
	if SliceRange(text, nil) != text {
		t.Errorf("nil range must return the full text")
	}
}

func TestNormalizePageNeutralisesMarkers(t *testing.T) {
	got := NormalizePage("[Page 7]\r\nSome\t\ttext   here  \n\n\n\nend")
	if strings.Contains(got, "[Page 7]") {
		t.Fatalf("marker-like line survived normalisation: %q", got)
	}
	want := "(Page 7)\nSome text here\n\nend"
	if got != want {
		t.Errorf("NormalizePage = %q, want %q", got, want)
	}
}
