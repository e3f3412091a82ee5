package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CoinForecast/internal/collector"
	"CoinForecast/internal/exporter"
	"CoinForecast/internal/model"
	"CoinForecast/internal/recorder"
	"CoinForecast/internal/simulator"
)

var fixedNow = time.Date(2024, 6, 1, 9, 15, 30, 0, time.Local)

func newPipeline(t *testing.T, status int, body string) (*Pipeline, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	out := filepath.Join(t.TempDir(), "public", "predictions.json")
	col := collector.NewCollector(collector.NewCoinGeckoFetcher(srv.URL, ""), "bitcoin", "usd", 0)
	p := New(col, simulator.NewForecaster(0, simulator.ForecastScale), HistorySettings{
		Days: simulator.HistoryDays, Seed: simulator.HistorySeed, Scale: simulator.HistoryScale,
	}, out)
	p.Now = func() time.Time { return fixedNow }
	return p, out
}

func readPredictions(t *testing.T, path string) map[string][]exporter.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out map[string][]exporter.Entry
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	return out
}

func TestRun_FallbackOnServerError(t *testing.T) {
	p, out := newPipeline(t, http.StatusInternalServerError, `oops`)

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline should complete on fetch failure: %v", err)
	}
	if res.Quote.Price != 40000 {
		t.Errorf("expected fallback price 40000, got %v", res.Quote.Price)
	}
	if res.Quote.Source != model.PriceSourceFallback {
		t.Errorf("expected fallback source, got %s", res.Quote.Source)
	}

	preds := readPredictions(t, out)
	want := map[string]int{"1D": 24, "1W": 168, "1M": 720}
	if len(preds) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(preds))
	}
	for k, n := range want {
		if len(preds[k]) != n {
			t.Errorf("%s: expected %d entries, got %d", k, n, len(preds[k]))
		}
	}
}

func TestRun_UsesFetchedPriceAndAnchor(t *testing.T) {
	p, out := newPipeline(t, http.StatusOK, `{"bitcoin":{"usd":61000.5}}`)

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Quote.Price != 61000.5 || res.Quote.Source != model.PriceSourceAPI {
		t.Errorf("unexpected quote %+v", res.Quote)
	}
	if len(res.History) != simulator.HistoryDays*24 {
		t.Errorf("expected %d history points, got %d", simulator.HistoryDays*24, len(res.History))
	}

	preds := readPredictions(t, out)
	day := preds["1D"]
	for i, e := range day {
		want := fixedNow.Add(time.Duration(i+1) * time.Hour).Format(exporter.DateLayout)
		if e.Date != want {
			t.Fatalf("1D[%d]: expected %s, got %s", i, want, e.Date)
		}
	}
}

func TestRun_HistoryIsReproducible(t *testing.T) {
	p, _ := newPipeline(t, http.StatusOK, `{"bitcoin":{"usd":50000}}`)
	a, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range a.History {
		if a.History[i] != b.History[i] {
			t.Fatalf("history point %d differs across runs", i)
		}
	}
}

func TestRun_TwiceOverwrites(t *testing.T) {
	p, out := newPipeline(t, http.StatusOK, `{"bitcoin":{"usd":50000}}`)
	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	preds := readPredictions(t, out)
	if len(preds["1M"]) != 720 {
		t.Errorf("expected 720 entries after rerun, got %d", len(preds["1M"]))
	}
}

func TestRun_RecordsAudit(t *testing.T) {
	p, _ := newPipeline(t, http.StatusInternalServerError, ``)
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer rec.Close()
	p.Recorder = rec

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	evt, err := rec.LatestRun()
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if evt.PriceSource != string(model.PriceSourceFallback) || !evt.FetchError.Valid {
		t.Errorf("expected fallback audit record, got %+v", evt)
	}
	if evt.Horizons[model.Horizon1W].Points != 168 {
		t.Errorf("expected 1W summary with 168 points, got %+v", evt.Horizons[model.Horizon1W])
	}
}

func TestRun_WriteFailure(t *testing.T) {
	p, _ := newPipeline(t, http.StatusOK, `{"bitcoin":{"usd":50000}}`)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	p.OutputPath = filepath.Join(blocker, "predictions.json")
	if _, err := p.Run(context.Background()); err == nil {
		t.Error("expected error when output dir cannot be created")
	}
}
