package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/compare"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/export"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm/openai"
	"github.com/joseph-ayodele/fineprint/internal/normalize"
	"github.com/joseph-ayodele/fineprint/internal/pipeline"
	repo "github.com/joseph-ayodele/fineprint/internal/repository"
	"github.com/joseph-ayodele/fineprint/internal/segment"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		kind = flag.String("segmenter", "", "oracle | anchors | none (default from SEGMENTER)")
		xlsx = flag.String("xlsx", "", "also write the change report to this XLSX path")
	)
	flag.Parse()
	if flag.NArg() != 2 {
		printError("usage: compare [-segmenter kind] [-xlsx out.xlsx] <before.pdf> <after.pdf>\n")
		os.Exit(2)
	}
	beforePath, afterPath := flag.Arg(0), flag.Arg(1)

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stderr)
	if *kind != "" {
		cfg.Ingest.Segmenter = *kind
	}
	if cfg.LLM.APIKey == "" {
		printError("LLM_API_KEY (or OPENAI_API_KEY) env var is required\n")
		os.Exit(2)
	}

	before, err := os.ReadFile(beforePath)
	if err != nil {
		printError("read %s: %v\n", beforePath, err)
		os.Exit(1)
	}
	after, err := os.ReadFile(afterPath)
	if err != nil {
		printError("read %s: %v\n", afterPath, err)
		os.Exit(1)
	}

	extractor, err := extract.New(cfg.Extractor, logger)
	if err != nil {
		printError("build extractor: %v\n", err)
		os.Exit(1)
	}
	oracle := openai.NewClient(openai.ConfigFromCommon(cfg.LLM), nil, logger)
	seg, err := segment.New(cfg.Ingest.Segmenter, oracle, nil, logger)
	if err != nil {
		printError("build segmenter: %v\n", err)
		os.Exit(2)
	}
	processor := pipeline.NewProcessor(extractor, seg,
		compare.NewComparator(oracle, cfg.LLM.MaxInputChars, logger),
		normalize.New(nil, logger), nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout)
	defer cancel()

	a := processor.Begin(ctx, pipeline.KindNext)
	res, err := processor.Analyze(ctx, a,
		pipeline.Input{Filename: filepath.Base(beforePath), Data: before},
		pipeline.Input{Filename: filepath.Base(afterPath), Data: after},
	)
	if err != nil {
		_ = a.Fail(err)
		printError("analysis failed (%s): %v\n", pipeline.Outcome(err), err)
		os.Exit(1)
	}
	a.Commit()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Changes); err != nil {
		printError("encode: %v\n", err)
		os.Exit(1)
	}

	if *xlsx != "" {
		if err := writeReport(ctx, *xlsx, afterPath, res); err != nil {
			printError("write report: %v\n", err)
			os.Exit(1)
		}
		logger.Info("report written", "path", *xlsx, "changes", len(res.Changes))
	}
}

// writeReport stages the result in an in-memory store so the regular exporter can render it.
func writeReport(ctx context.Context, out, afterPath string, res *pipeline.Result) error {
	store := repo.NewMemoryStore()
	now := time.Now().UTC()
	reg := &entity.Regulation{
		ID:          "local",
		Title:       filepath.Base(afterPath),
		Status:      constants.RegulationStatusPending,
		CreatedAt:   now,
		LastUpdated: now,
		Versions: []entity.Version{{
			ID:            "v2",
			Label:         filepath.Base(afterPath),
			UploadDate:    now,
			FileName:      filepath.Base(afterPath),
			PageCount:     res.After.PageCount(),
			EnactingRange: res.AfterRange,
			BaseVersionID: "v1",
			Changes:       res.Changes,
		}},
	}
	if err := store.Regulations.Create(ctx, reg); err != nil {
		return err
	}
	b, err := export.NewService(store.Regulations, nil).ExportVersionXLSX(ctx, reg.ID, "v2")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}
