package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/jeovahfialho/stock-series/internal/domain"
	"github.com/shopspring/decimal"
)

var maxVolume = decimal.NewFromInt(math.MaxInt64)

// NormalizePrices devolve uma cópia ordenada por data (estável) com os
// preços arredondados. O volume não é arredondado.
func NormalizePrices(rows []domain.PriceRow, round Rounder) []domain.PriceRow {
	out := make([]domain.PriceRow, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	for i := range out {
		out[i].Open = round(out[i].Open)
		out[i].High = round(out[i].High)
		out[i].Low = round(out[i].Low)
		out[i].Close = round(out[i].Close)
	}

	return out
}

func NormalizeIndex(rows []domain.IndexRow, round Rounder) []domain.IndexRow {
	out := make([]domain.IndexRow, len(rows))
	copy(out, rows)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	for i := range out {
		out[i].Close = round(out[i].Close)
	}

	return out
}

// ProjectCandles converte linhas normalizadas em candles. Com skipInvalid,
// linhas cujo volume não é inteiro representável são devolvidas em skipped
// em vez de abortar.
func ProjectCandles(rows []domain.PriceRow, skipInvalid bool) (candles []domain.Candle, skipped []error, err error) {
	candles = make([]domain.Candle, 0, len(rows))

	for _, row := range rows {
		volume, err := toVolume(row)
		if err != nil {
			if !skipInvalid {
				return nil, nil, err
			}
			skipped = append(skipped, err)
			continue
		}

		candles = append(candles, domain.Candle{
			Date:   row.Date.Format(domain.DateLayout),
			Open:   row.Open.InexactFloat64(),
			High:   row.High.InexactFloat64(),
			Low:    row.Low.InexactFloat64(),
			Close:  row.Close.InexactFloat64(),
			Volume: volume,
		})
	}

	return candles, skipped, nil
}

func toVolume(row domain.PriceRow) (int64, error) {
	var reason string
	switch {
	case !row.Volume.IsInteger():
		reason = "volume não é inteiro"
	case row.Volume.IsNegative():
		reason = "volume negativo"
	case row.Volume.GreaterThan(maxVolume):
		reason = "volume excede int64"
	default:
		return row.Volume.IntPart(), nil
	}

	return 0, &domain.RowError{
		Line:   row.Line,
		Column: "volume",
		Value:  row.Volume.String(),
		Err:    fmt.Errorf("%w: %s", domain.ErrTypeConversion, reason),
	}
}

func ProjectIndex(rows []domain.IndexRow) []domain.IndexPoint {
	points := make([]domain.IndexPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, domain.IndexPoint{
			Date:  row.Date.Format(domain.DateLayout),
			Value: row.Close.InexactFloat64(),
		})
	}
	return points
}

// Assemble junta as duas séries sem validar alinhamento de datas entre elas.
func Assemble(candles []domain.Candle, points []domain.IndexPoint) *domain.Document {
	if candles == nil {
		candles = []domain.Candle{}
	}
	if points == nil {
		points = []domain.IndexPoint{}
	}
	return &domain.Document{
		TimeSeries:  candles,
		SP500Series: points,
	}
}
