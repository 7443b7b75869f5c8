package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRow é uma linha diária OHLCV da tabela do ativo.
type PriceRow struct {
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Line   int
}

// IndexRow é um fechamento diário da tabela do índice.
type IndexRow struct {
	Date  time.Time
	Close decimal.Decimal
	Line  int
}

type PriceColumns struct {
	Date   string
	Open   string
	High   string
	Low    string
	Close  string
	Volume string
}

var DefaultPriceColumns = PriceColumns{
	Date:   "date",
	Open:   "open",
	High:   "high",
	Low:    "low",
	Close:  "close",
	Volume: "volume",
}

func (c PriceColumns) Required() []string {
	return []string{c.Date, c.Open, c.High, c.Low, c.Close, c.Volume}
}

type IndexColumns struct {
	Date  string
	Close string
}

var DefaultIndexColumns = IndexColumns{
	Date:  "date",
	Close: "close",
}

func (c IndexColumns) Required() []string {
	return []string{c.Date, c.Close}
}
