package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"CoinForecast/internal/model"
)

// DateLayout is the local-time timestamp format the front-end expects (no offset).
const DateLayout = "2006-01-02T15:04:05"

// Entry is one serialized forecast point.
type Entry struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Entries converts points to their serialized form.
func Entries(points []model.PricePoint) []Entry {
	out := make([]Entry, len(points))
	for i, p := range points {
		out[i] = Entry{Date: p.Time.Local().Format(DateLayout), Price: p.Price}
	}
	return out
}

// Predictions is a ForecastBundle whose JSON keys follow model.Horizons order.
type Predictions model.ForecastBundle

func (p Predictions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range model.Horizons {
		points, ok := p[h]
		if !ok {
			return nil, fmt.Errorf("missing horizon %s", h)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(string(h))
		buf.Write(key)
		buf.WriteByte(':')
		series, err := json.Marshal(Entries(points))
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", h, err)
		}
		buf.Write(series)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Marshal renders the bundle with 4-space indentation.
func Marshal(b model.ForecastBundle) ([]byte, error) {
	return json.MarshalIndent(Predictions(b), "", "    ")
}

// Write serializes the bundle to path, creating the parent directory if needed.
// An existing file is replaced in one rename, so readers see either the old or
// the new document, never a partial one.
func Write(path string, b model.ForecastBundle) error {
	data, err := Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := replaceFile(dir, path, data); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	return nil
}

// replaceFile writes data to a temp file in dir and renames it over path.
// The temp file lives next to path so the rename stays on one filesystem.
func replaceFile(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
