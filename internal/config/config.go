package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/kelseyhightower/envconfig"
)

const (
	RoundingHalfEven = "half_even"
	RoundingHalfAway = "half_away"
)

type Config struct {
	InstrumentFile string `envconfig:"INSTRUMENT_FILE" default:"MSFT_10y.csv"`
	IndexFile      string `envconfig:"INDEX_FILE" default:"SP500_10y.csv"`
	OutputFile     string `envconfig:"OUTPUT_FILE" default:"stock_and_sp500.json"`
	OutputPretty   bool   `envconfig:"OUTPUT_PRETTY" default:"false"`

	CSVDelimiter    string `envconfig:"CSV_DELIMITER" default:","`
	RoundingMode    string `envconfig:"ROUNDING_MODE" default:"half_even"`
	SkipInvalidRows bool   `envconfig:"SKIP_INVALID_ROWS" default:"false"`

	MetricsFile string `envconfig:"METRICS_FILE" default:""`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"production"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("erro ao ler configuração: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.RoundingMode {
	case RoundingHalfEven, RoundingHalfAway:
	default:
		return fmt.Errorf("ROUNDING_MODE inválido: %q (use %s ou %s)", c.RoundingMode, RoundingHalfEven, RoundingHalfAway)
	}

	if _, err := c.Delimiter(); err != nil {
		return err
	}

	if c.InstrumentFile == "" || c.IndexFile == "" || c.OutputFile == "" {
		return fmt.Errorf("caminhos de entrada e saída são obrigatórios")
	}

	return nil
}

// Delimiter retorna CSVDelimiter como rune; aceita "\t" literal.
func (c *Config) Delimiter() (rune, error) {
	d := c.CSVDelimiter
	if d == `\t` {
		d = "\t"
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("CSV_DELIMITER deve ter um único caractere: %q", c.CSVDelimiter)
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("CSV_DELIMITER inválido: %q", c.CSVDelimiter)
	}
	return r, nil
}
