package domain

// ContentPlan is the strategist's output: the strategic shape of the video
// before any script exists.
type ContentPlan struct {
	Title         string   `json:"tytul"`
	Topic         string   `json:"temat"`
	Platforms     []string `json:"platforma_docelowa"`
	LengthSeconds int      `json:"dlugosc_sekund"`
	HookType      string   `json:"typ_haka"`
	VisualHook    string   `json:"hak_wizualny"`
	TextHook      string   `json:"hak_tekstowy"`
	VerbalHook    string   `json:"hak_werbalny"`
	EmotionalArc  []string `json:"luk_emocjonalny"`
	VisualStyle   string   `json:"styl_wizualny"`
	VoiceTone     string   `json:"ton_glosu"`
	Hashtags      []string `json:"hashtagi"`
	// Predicted engagement in [0,1].
	PredictedEngagement float64 `json:"przewidywane_zaangazowanie"`
}

// Scene is one segment of the script: what the viewer sees and hears between
// StartSeconds and EndSeconds.
type Scene struct {
	Number       int     `json:"numer"`
	StartSeconds float64 `json:"czas_start"`
	EndSeconds   float64 `json:"czas_koniec"`
	VisualPrompt string  `json:"opis_wizualny"`
	Narration    string  `json:"tekst_narracji"`
	ScreenText   string  `json:"tekst_na_ekranie"`
	Emotion      string  `json:"emocja"`
	Pace         string  `json:"tempo"`
}

// Script is the scriptwriter's output.
type Script struct {
	Title           string  `json:"tytul"`
	Summary         string  `json:"streszczenie"`
	Scenes          []Scene `json:"sceny"`
	OpeningHook     string  `json:"hook_otwierajacy"`
	CallToAction    string  `json:"cta"`
	TotalSeconds    float64 `json:"calkowity_czas"`
	WordCount       int     `json:"liczba_slow"`
	EngagementScore float64 `json:"wynik_zaangazowania"`
}

// AudioTrack is the voice director's output.
type AudioTrack struct {
	Path            string         `json:"sciezka_pliku"`
	DurationSeconds float64        `json:"czas_trwania"`
	Language        string         `json:"jezyk"`
	Voice           string         `json:"glos"`
	Format          string         `json:"format"`
	Transcript      string         `json:"transkrypcja"`
	Segments        []AudioSegment `json:"segmenty"`
}

// AudioSegment maps a slice of the transcript onto the audio timeline.
type AudioSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SceneImage is one generated frame of the visual set.
type SceneImage struct {
	SceneNumber int    `json:"numer_sceny"`
	Path        string `json:"sciezka_pliku"`
	Prompt      string `json:"prompt_uzyty"`
	Resolution  string `json:"rozdzielczosc"`
	Format      string `json:"format"`
}

// VisualSet is the visual producer's output.
type VisualSet struct {
	Images      []SceneImage `json:"obrazy"`
	VisualStyle string       `json:"styl_wizualny"`
	Palette     string       `json:"paleta_kolorow"`
	ImageCount  int          `json:"liczba_obrazow"`
}
