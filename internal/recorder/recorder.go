package recorder

import (
	"errors"
	"time"

	"github.com/guregu/null/v6"

	"CoinForecast/internal/model"
)

// ErrNoRuns is returned by LatestRun when nothing has been recorded.
var ErrNoRuns = errors.New("no runs recorded")

// RunEvent holds the audit record of one pipeline run. Only summaries are kept;
// price series are never stored.
type RunEvent struct {
	ID          int64
	Timestamp   time.Time
	CoinID      string
	Currency    string
	Price       float64
	PriceSource string      // "api" or "fallback"
	FetchError  null.String // set only when PriceSource is "fallback"
	OutputPath  string
	History     model.SeriesSummary
	Horizons    map[model.Horizon]model.SeriesSummary
}

// NewRunEvent builds the audit record for a finished run.
func NewRunEvent(res *model.RunResult) *RunEvent {
	evt := &RunEvent{
		Timestamp:   res.FinishedAt,
		CoinID:      res.Quote.CoinID,
		Currency:    res.Quote.Currency,
		Price:       res.Quote.Price,
		PriceSource: string(res.Quote.Source),
		OutputPath:  res.OutputPath,
		History:     res.HistorySummary,
		Horizons:    res.Summaries,
	}
	if res.Quote.FetchErr != nil {
		evt.FetchError = null.StringFrom(res.Quote.FetchErr.Error())
	}
	return evt
}

// Recorder persists run audit records.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	LatestRun() (*RunEvent, error)
	Close() error
}
