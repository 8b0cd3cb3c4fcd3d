// Package normalize turns raw comparator output into canonical change records.
package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Normalizer validates oracle change elements and assigns the workflow fields it owns:
// sequential ids, pending status and an empty comment list. It is deterministic.
type Normalizer struct {
	schema  *jsonschema.Schema
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(m *metrics.Metrics, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		schema:  llm.MustCompileSchema(llm.BuildChangeJSONSchema()),
		metrics: m,
		log:     logger,
	}
}

// element mirrors the change schema after validation.
type element struct {
	Summary        string  `json:"summary"`
	Analysis       string  `json:"analysis"`
	Change         string  `json:"change"`
	BeforeQuote    string  `json:"before_quote"`
	AfterQuote     string  `json:"after_quote"`
	BeforePage     *int    `json:"before_page"`
	AfterPage      *int    `json:"after_page"`
	Type           string  `json:"type"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

// Normalize validates every element of raw and returns the canonical list in oracle order.
//
// The payload fails as a whole with an AnalysisOutputError when it is not JSON, has neither an
// array nor a {"changes": [...]} shape, or when it has elements and none of them is valid.
// Individually invalid elements are dropped and logged. An empty list is a valid result.
func (n *Normalizer) Normalize(ctx context.Context, raw llm.RawPayload) ([]entity.ChangeRecord, error) {
	log := common.LoggerFrom(ctx, n.log)

	items, err := decodeItems(raw)
	if err != nil {
		log.Error("normalize.payload_invalid", "error", err, "raw_bytes", len(raw))
		return nil, err
	}

	records := make([]entity.ChangeRecord, 0, len(items))
	dropped := 0
	for i, item := range items {
		el, err := n.validate(item)
		if err != nil {
			dropped++
			log.Warn("normalize.element_dropped", "index", i, "error", err)
			continue
		}
		records = append(records, entity.ChangeRecord{
			ID:             entity.ChangeID(len(records) + 1),
			Summary:        el.Summary,
			Analysis:       el.Analysis,
			Change:         el.Change,
			BeforeQuote:    el.BeforeQuote,
			AfterQuote:     el.AfterQuote,
			BeforePage:     el.BeforePage,
			AfterPage:      el.AfterPage,
			Type:           constants.ChangeType(el.Type),
			Classification: constants.Classification(el.Classification),
			Confidence:     el.Confidence,
			Status:         constants.ChangeStatusPending,
			Comments:       []entity.Comment{},
		})
	}
	n.metrics.ChangesDropped(dropped)

	if len(items) > 0 && len(records) == 0 {
		log.Error("normalize.no_valid_elements", "elements", len(items))
		return nil, common.NewAnalysisOutputError(
			fmt.Sprintf("none of %d change elements matched the change schema", len(items)), raw, nil)
	}

	log.Info("normalize.ok", "changes", len(records), "dropped", dropped)
	return records, nil
}

// decodeItems accepts a bare array or an object carrying the array under "changes".
func decodeItems(raw llm.RawPayload) ([]json.RawMessage, error) {
	content := llm.StripCodeFences(raw)
	if len(content) == 0 {
		return nil, common.NewAnalysisOutputError("empty payload", raw, nil)
	}
	if !json.Valid(content) {
		return nil, common.NewAnalysisOutputError("payload is not JSON", raw, nil)
	}

	switch content[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, common.NewAnalysisOutputError("payload is not a change list", raw, err)
		}
		return items, nil
	case '{':
		var env struct {
			Changes *[]json.RawMessage `json:"changes"`
		}
		if err := json.Unmarshal(content, &env); err != nil || env.Changes == nil {
			return nil, common.NewAnalysisOutputError(`payload object has no "changes" list`, raw, err)
		}
		return *env.Changes, nil
	default:
		return nil, common.NewAnalysisOutputError("payload is neither a list nor an object", raw, nil)
	}
}

// validate sanitizes one element, checks it against the change schema and decodes it.
func (n *Normalizer) validate(item json.RawMessage) (element, error) {
	var m map[string]any
	if err := json.Unmarshal(item, &m); err != nil || m == nil {
		return element{}, fmt.Errorf("element is not an object")
	}
	llm.SanitizeChangeElement(m)

	// Round-trip so the validator only sees JSON-decoded types.
	b, err := json.Marshal(m)
	if err != nil {
		return element{}, fmt.Errorf("encode element: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return element{}, fmt.Errorf("decode element: %w", err)
	}
	if err := n.schema.Validate(v); err != nil {
		return element{}, err
	}

	var el element
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&el); err != nil {
		return element{}, fmt.Errorf("decode element: %w", err)
	}
	return el, nil
}
