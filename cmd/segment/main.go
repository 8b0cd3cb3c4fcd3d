package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/llm/openai"
	"github.com/joseph-ayodele/fineprint/internal/segment"
)

func main() {
	var (
		kind     = flag.String("segmenter", segment.KindAnchors, "oracle | anchors | none")
		backend  = flag.String("backend", "", "pdftotext | unipdf (default from EXTRACTOR_BACKEND)")
		showText = flag.Bool("text", false, "print the page-marked text of the enacting terms")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: segment [-segmenter kind] [-backend name] [-text] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stderr)
	if *backend != "" {
		cfg.Extractor.Backend = *backend
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout)
	defer cancel()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	extractor, err := extract.New(cfg.Extractor, logger)
	if err != nil {
		logger.Error("build extractor", "error", err)
		os.Exit(1)
	}
	doc, err := extractor.Extract(ctx, filepath.Base(path), data)
	if err != nil {
		logger.Error("extract", "path", path, "error", err)
		os.Exit(1)
	}

	var oracle llm.Oracle
	if *kind == segment.KindOracle {
		if cfg.LLM.APIKey == "" {
			logger.Error("LLM_API_KEY (or OPENAI_API_KEY) is required for the oracle segmenter")
			os.Exit(2)
		}
		oracle = openai.NewClient(openai.ConfigFromCommon(cfg.LLM), nil, logger)
	}
	seg, err := segment.New(*kind, oracle, nil, logger)
	if err != nil {
		logger.Error("build segmenter", "error", err)
		os.Exit(2)
	}

	text := doc.Text()
	r, err := seg.Segment(ctx, text, doc.PageCount())
	if err != nil {
		logger.Error("segment", "error", err)
		os.Exit(1)
	}

	fmt.Printf("file:     %s\n", path)
	fmt.Printf("pages:    %d (%s, %s)\n", doc.PageCount(), doc.Method, doc.Duration)
	for _, w := range doc.Warnings {
		fmt.Printf("warning:  %s\n", w)
	}
	if r == nil {
		fmt.Println("enacting: not found, full text would be compared")
	} else {
		fmt.Printf("enacting: pages %s\n", r)
	}
	if *showText {
		fmt.Println()
		fmt.Println(extract.SliceRange(text, r))
	}
}
