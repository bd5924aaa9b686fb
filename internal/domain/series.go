package domain

import "time"

// SeriesStatus enumerates series lifecycle states.
type SeriesStatus string

const (
	SeriesStatusPlanning   SeriesStatus = "planowanie"
	SeriesStatusProduction SeriesStatus = "produkcja"
	SeriesStatusCompleted  SeriesStatus = "ukonczona"
	SeriesStatusPaused     SeriesStatus = "wstrzymana"
)

// EpisodeStatus tracks one episode inside a series.
type EpisodeStatus string

const (
	EpisodeStatusPending    EpisodeStatus = "oczekuje"
	EpisodeStatusGenerating EpisodeStatus = "generacja"
	EpisodeStatusReady      EpisodeStatus = "gotowy"
	EpisodeStatusFailed     EpisodeStatus = "blad"
)

// Episode is the metadata of one episode within a narrative series. The video
// itself lives on the Job identified by SessionID.
type Episode struct {
	Number      int           `json:"numer"`
	SessionID   string        `json:"sesja_id,omitempty"`
	Title       string        `json:"tytul"`
	Summary     string        `json:"streszczenie"`
	Cliffhanger string        `json:"haczyk_konca"`
	Status      EpisodeStatus `json:"status"`
	ViralScore  int           `json:"nwv"`
	CostUSD     float64       `json:"koszt_usd"`
}

// Series is a planned sequence of connected episodes sharing a narrative arc.
type Series struct {
	ID             string       `json:"seria_id"`
	Title          string       `json:"tytul_serii"`
	Topic          string       `json:"temat"`
	Genre          string       `json:"gatunek"`
	Description    string       `json:"opis_serii"`
	Platforms      []string     `json:"platforma"`
	VisualStyle    string       `json:"styl_wizualny"`
	Voice          string       `json:"glos"`
	EpisodeSeconds int          `json:"dlugosc_odcinka_s"`
	EpisodeCount   int          `json:"liczba_odcinkow"`
	NarrativeArc   []string     `json:"luk_narracyjny"`
	Episodes       []Episode    `json:"odcinki"`
	Status         SeriesStatus `json:"status"`
	TotalCostUSD   float64      `json:"calkowity_koszt_usd"`
	CreatedAt      time.Time    `json:"data_utworzenia"`
}
