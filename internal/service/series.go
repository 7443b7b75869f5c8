package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/buger/jsonparser"
	"github.com/jeovahfialho/stock-series/internal/domain"
	"github.com/jeovahfialho/stock-series/internal/ingestion"
	"github.com/jeovahfialho/stock-series/internal/storage/jsonfile"
	"github.com/jeovahfialho/stock-series/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var seriesFields = map[string]bool{
	"open":  true,
	"high":  true,
	"low":   true,
	"close": true,
}

type seriesEntry struct {
	date  time.Time
	value decimal.Decimal
}

// DeriveSeries extrai {date, value} de um array JSON de candles, usando field
// como valor. Aceita o array na raiz ou um documento com "time_series".
func DeriveSeries(data []byte, field string, round Rounder) ([]domain.IndexPoint, error) {
	if !seriesFields[field] {
		return nil, fmt.Errorf("campo inválido %q (use open, high, low ou close)", field)
	}
	if round == nil {
		round, _ = NewRounder("")
	}

	var keys []string
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		keys = []string{"time_series"}
	}

	var (
		entries []seriesEntry
		itemErr error
		pos     int
	)

	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		pos++
		if itemErr != nil {
			return
		}
		entry, err := parseSeriesItem(value, dataType, field, pos)
		if err != nil {
			itemErr = err
			return
		}
		entries = append(entries, entry)
	}, keys...)
	if err != nil {
		return nil, fmt.Errorf("%w: JSON inválido: %v", domain.ErrParse, err)
	}
	if itemErr != nil {
		return nil, itemErr
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})

	points := make([]domain.IndexPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, domain.IndexPoint{
			Date:  e.date.Format(domain.DateLayout),
			Value: round(e.value).InexactFloat64(),
		})
	}

	return points, nil
}

func parseSeriesItem(value []byte, dataType jsonparser.ValueType, field string, pos int) (seriesEntry, error) {
	fail := func(column, v, msg string) error {
		return &domain.RowError{
			Line:   pos,
			Column: column,
			Value:  v,
			Err:    fmt.Errorf("%w: %s", domain.ErrParse, msg),
		}
	}

	if dataType != jsonparser.Object {
		return seriesEntry{}, fail("", "", "item não é um objeto")
	}

	dateStr, err := jsonparser.GetString(value, "date")
	if err != nil {
		return seriesEntry{}, fail("date", "", "data ausente")
	}
	date, err := ingestion.ParseDate(dateStr)
	if err != nil {
		return seriesEntry{}, fail("date", dateStr, "data inválida")
	}

	raw, vt, _, err := jsonparser.Get(value, field)
	if err != nil {
		return seriesEntry{}, fail(field, "", "campo ausente")
	}
	if vt != jsonparser.Number && vt != jsonparser.String {
		return seriesEntry{}, fail(field, string(raw), "valor não numérico")
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return seriesEntry{}, fail(field, string(raw), "valor não numérico")
	}

	return seriesEntry{date: date, value: d}, nil
}

type SeriesOptions struct {
	InputFile  string
	OutputFile string
	Field      string
	Pretty     bool
	Round      Rounder
}

// BuildSeries lê InputFile, deriva a série e grava o array em OutputFile.
func BuildSeries(ctx context.Context, opts SeriesOptions) (int, error) {
	data, err := os.ReadFile(opts.InputFile)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", domain.ErrInputNotFound, opts.InputFile)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: erro ao ler %s: %v", domain.ErrParse, opts.InputFile, err)
	}

	points, err := DeriveSeries(data, opts.Field, opts.Round)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opts.InputFile, err)
	}

	if err := jsonfile.Write(opts.OutputFile, points, opts.Pretty); err != nil {
		return 0, fmt.Errorf("erro ao gravar %s: %w", opts.OutputFile, err)
	}

	logger.WithContext(ctx).Info("série gravada",
		zap.String("input", opts.InputFile),
		zap.String("output", opts.OutputFile),
		zap.String("field", opts.Field),
		zap.Int("points", len(points)))

	return len(points), nil
}
