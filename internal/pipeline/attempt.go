package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fineprint/constants"
	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
)

// Ingestion kinds, used as metric labels.
const (
	KindFirst = "first"
	KindNext  = "next"
)

// Attempt tracks one ingestion through received → extracting → segmenting → comparing →
// normalizing → committed, or into failed from any state. Once terminal it no longer moves.
type Attempt struct {
	ID      string
	Kind    string
	state   constants.IngestState
	history []constants.IngestState
	started time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Begin starts an attempt in the received state.
func (p *Processor) Begin(ctx context.Context, kind string) *Attempt {
	id := uuid.New().String()
	a := &Attempt{
		ID:      id,
		Kind:    kind,
		started: time.Now(),
		metrics: p.metrics,
		log:     common.LoggerFrom(ctx, p.log).With("ingest_id", id, "kind", kind),
	}
	a.Enter(constants.IngestReceived)
	return a
}

// State is the current state.
func (a *Attempt) State() constants.IngestState { return a.state }

// History lists every state entered, in order.
func (a *Attempt) History() []constants.IngestState {
	out := make([]constants.IngestState, len(a.history))
	copy(out, a.history)
	return out
}

// Logger is scoped to the attempt.
func (a *Attempt) Logger() *slog.Logger { return a.log }

func (a *Attempt) terminal() bool {
	return a.state == constants.IngestCommitted || a.state == constants.IngestFailed
}

// Enter moves the attempt to state.
func (a *Attempt) Enter(state constants.IngestState) {
	if a.terminal() {
		return
	}
	a.state = state
	a.history = append(a.history, state)
	a.metrics.IngestionState(string(state))
	a.log.Debug("ingest.state", "state", state, "elapsed_ms", time.Since(a.started).Milliseconds())
}

// Commit marks the attempt committed.
func (a *Attempt) Commit() {
	if a.terminal() {
		return
	}
	a.Enter(constants.IngestCommitted)
	a.metrics.ObserveIngestion(a.Kind, "ok", time.Since(a.started))
	a.log.Info("ingest.committed", "elapsed_ms", time.Since(a.started).Milliseconds())
}

// Fail marks the attempt failed and returns err unchanged, so callers can `return a.Fail(err)`.
func (a *Attempt) Fail(err error) error {
	if a.terminal() {
		return err
	}
	from := a.state
	a.Enter(constants.IngestFailed)
	outcome := Outcome(err)
	a.metrics.ObserveIngestion(a.Kind, outcome, time.Since(a.started))
	a.log.Error("ingest.failed",
		"from", from, "outcome", outcome, "error", err,
		"elapsed_ms", time.Since(a.started).Milliseconds())
	return err
}

// Outcome classifies an ingestion error into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrUnsupportedMediaType):
		return "unsupported_media"
	case errors.Is(err, common.ErrDocumentFormat):
		return "document_format"
	case errors.Is(err, common.ErrOracleUnavailable):
		return "oracle_unavailable"
	case errors.Is(err, common.ErrAnalysisOutput):
		return "analysis_output"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, common.ErrInternal):
		return "internal"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
