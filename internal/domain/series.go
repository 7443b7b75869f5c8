package domain

// DateLayout é o formato ISO de data usado em todos os registros de saída.
const DateLayout = "2006-01-02"

type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type IndexPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Document é o arquivo gravado ao final do build.
type Document struct {
	TimeSeries  []Candle     `json:"time_series"`
	SP500Series []IndexPoint `json:"sp500_series"`
}
