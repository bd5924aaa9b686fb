package domain

import "time"

// PlatformDay is one row of the daily platform statistics aggregate.
type PlatformDay struct {
	Day            time.Time `json:"dzien"`
	Total          int       `json:"liczba_zadan"`
	Succeeded      int       `json:"sukcesy"`
	Failed         int       `json:"porazki"`
	AverageScore   float64   `json:"sredni_wynik"`
	AverageCostUSD float64   `json:"sredni_koszt_usd"`
	TotalCostUSD   float64   `json:"calkowity_koszt_usd"`
	AverageSeconds float64   `json:"sredni_czas_s"`
}
