package domain

// ScoreReport is the composite virality prediction. Produced by the quality
// reviewer (post-draft) and by the virality engine (pre-generation preview);
// consumed by the orchestrator to decide accept versus retry.
type ScoreReport struct {
	ViralScore       int              `json:"wynik_nwv"`
	HookScore        int              `json:"wynik_haka"`
	RetentionScore   int              `json:"wynik_zatrzymania"`
	ShareScore       int              `json:"wynik_udostepnialnosci"`
	PlatformScores   map[string]int   `json:"wynik_platformy"`
	Badge            string           `json:"odznaka"`
	Rationale        string           `json:"uzasadnienie"`
	OptimizationTips []string         `json:"wskazowki_optymalizacji"`
}

// QualityReview is the quality reviewer's verdict over a complete draft.
type QualityReview struct {
	OverallScore int          `json:"wynik_ogolny"`
	HookScore    int          `json:"wynik_haka"`
	ScriptScore  int          `json:"wynik_scenariusza"`
	VisualScore  int          `json:"wynik_wizualny"`
	AudioScore   int          `json:"wynik_audio"`
	WeakPoints   []string     `json:"slabe_punkty"`
	StrongPoints []string     `json:"mocne_punkty"`
	Suggestions  []string     `json:"sugestie"`
	Approved     bool         `json:"zatwierdzone"`
	Virality     *ScoreReport `json:"ocena_wiralnosci,omitempty"`
}
