package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/llm"
)

const (
	opSegment = "segment"
	opCompare = "compare"
)

// Segment implements llm.Oracle.
func (c *Client) Segment(ctx context.Context, req llm.SegmentRequest) (llm.RawPayload, error) {
	log := common.LoggerFrom(ctx, c.log)
	log.Info("oracle.segment.start",
		"model", c.cfg.SegmentModel,
		"filename", req.Filename,
		"total_pages", req.TotalPages,
		"text_len", len(req.DocumentText),
	)
	schema := llm.BuildSegmentationJSONSchema(req.TotalPages)
	return c.complete(ctx, opSegment, c.cfg.SegmentModel,
		llm.BuildSegmentSystemPrompt(), llm.BuildSegmentUserPrompt(req), schema)
}

// Compare implements llm.Oracle.
func (c *Client) Compare(ctx context.Context, req llm.CompareRequest) (llm.RawPayload, error) {
	log := common.LoggerFrom(ctx, c.log)
	log.Info("oracle.compare.start",
		"model", c.cfg.Model,
		"before_len", len(req.BeforeText),
		"after_len", len(req.AfterText),
		"before_range", rangeAttr(req.BeforeRange),
		"after_range", rangeAttr(req.AfterRange),
	)
	schema := llm.BuildChangeListJSONSchema()
	return c.complete(ctx, opCompare, c.cfg.Model,
		llm.BuildCompareSystemPrompt(), llm.BuildCompareUserPrompt(req), schema)
}

func (c *Client) complete(ctx context.Context, op, model, system, user string, schema map[string]any) (llm.RawPayload, error) {
	log := common.LoggerFrom(ctx, c.log)
	start := time.Now()

	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body, headers, c.log)
	if err != nil {
		c.metrics.ObserveOracle(op, "unavailable", time.Since(start))
		var se *llm.StatusError
		if errors.As(err, &se) {
			log.Error("oracle."+op+".status_error",
				"status", se.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
		} else {
			log.Error("oracle."+op+".http_error",
				"error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
		return nil, common.OracleUnavailableError(op, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.metrics.ObserveOracle(op, "bad_output", time.Since(start))
		log.Error("oracle."+op+".decode_error",
			"error", err, "raw_bytes", len(raw), "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAnalysisOutputError("undecodable completion envelope", raw, err)
	}
	if len(cc.Choices) == 0 {
		c.metrics.ObserveOracle(op, "bad_output", time.Since(start))
		log.Error("oracle."+op+".no_choices", "raw", string(raw), "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAnalysisOutputError("no choices in completion", raw, nil)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		c.metrics.ObserveOracle(op, "bad_output", time.Since(start))
		log.Error("oracle."+op+".empty_content", "elapsed_ms", time.Since(start).Milliseconds())
		return nil, common.NewAnalysisOutputError("empty completion content", raw, nil)
	}

	c.metrics.ObserveOracle(op, "ok", time.Since(start))
	log.Info("oracle."+op+".ok",
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.RawPayload(content), nil
}

func rangeAttr(r *entity.PageRange) string {
	if r == nil {
		return "full"
	}
	return r.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
