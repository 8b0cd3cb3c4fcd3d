package segment

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/extract"
)

var (
	reEnactingFormula = regexp.MustCompile(`(?i)\bHA(?:S|VE)\s+ADOPTED\s+THIS\s+(?:REGULATION|DIRECTIVE|DECISION)\b`)
	reArticleOne      = regexp.MustCompile(`(?mi)^\s*(?:Article|Art\.)\s+1\s*$`)
	reAnnexStart      = regexp.MustCompile(`(?i)^(?:annex|appendix|schedule)\b`)
)

// annexLookahead is how many leading non-empty lines of a page may open an annex block.
const annexLookahead = 2

// AnchorSegmenter finds the enacting terms from structural anchors alone, without an oracle.
// The range starts at the first page carrying the enacting formula or an "Article 1" heading and
// ends on the page before the first later page that opens an Annex, Appendix or Schedule block.
type AnchorSegmenter struct {
	log *slog.Logger
}

func NewAnchorSegmenter(logger *slog.Logger) *AnchorSegmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnchorSegmenter{log: logger}
}

func (s *AnchorSegmenter) Segment(ctx context.Context, documentText string, totalPages int) (*entity.PageRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := common.LoggerFrom(ctx, s.log)

	pages := extract.SplitPages(documentText)
	start := 0
	for _, p := range pages {
		if p.Number < 1 || p.Number > totalPages {
			continue
		}
		if reEnactingFormula.MatchString(p.Text) || reArticleOne.MatchString(p.Text) {
			start = p.Number
			break
		}
	}
	if start == 0 {
		log.Debug("segment.anchors.no_start", "total_pages", totalPages)
		return nil, nil
	}

	end := totalPages
	for _, p := range pages {
		if p.Number <= start || p.Number > totalPages {
			continue
		}
		if opensAnnex(p.Text) {
			end = p.Number - 1
			break
		}
	}

	r := entity.PageRange{Start: start, End: end}
	if !r.Valid(totalPages) {
		return nil, nil
	}
	log.Debug("segment.anchors.ok", "enacting_terms", r.String(), "total_pages", totalPages)
	return &r, nil
}

func opensAnnex(text string) bool {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if reAnnexStart.MatchString(line) {
			return true
		}
		seen++
		if seen >= annexLookahead {
			return false
		}
	}
	return false
}
