package service

import (
	"fmt"

	"github.com/jeovahfialho/stock-series/internal/config"
	"github.com/shopspring/decimal"
)

// Casas decimais de preços e valores na saída.
const pricePlaces = 2

type Rounder func(decimal.Decimal) decimal.Decimal

// NewRounder devolve a regra de arredondamento para o modo configurado.
// half_even arredonda empates para o dígito par (370.875 -> 370.88,
// 4700.125 -> 4700.12); half_away afasta empates do zero (4700.125 -> 4700.13).
// O arredondamento é feito sobre o texto decimal exato da entrada.
func NewRounder(mode string) (Rounder, error) {
	switch mode {
	case config.RoundingHalfEven, "":
		return func(d decimal.Decimal) decimal.Decimal {
			return d.RoundBank(pricePlaces)
		}, nil
	case config.RoundingHalfAway:
		return func(d decimal.Decimal) decimal.Decimal {
			return d.Round(pricePlaces)
		}, nil
	default:
		return nil, fmt.Errorf("modo de arredondamento desconhecido: %q", mode)
	}
}
