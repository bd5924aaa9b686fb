package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusPartial   JobStatus = "partial"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status permits no further mutation.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Input bounds enforced before a job is created.
const (
	BriefMinLength     = 10
	BriefMaxLength     = 2000
	DurationMinSeconds = 15
	DurationMaxSeconds = 180
)

// KnownPlatforms lists the platform tags the pipeline can target. Request
// validation and ValidateInput both read from it, so adding a platform here
// opens it across the whole API.
var KnownPlatforms = []string{"tiktok", "youtube", "instagram"}

// PlatformKnown reports whether the tag is an accepted target platform.
func PlatformKnown(platform string) bool {
	for _, p := range KnownPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}

// Brand carries the optional brand profile attached to a job.
type Brand struct {
	Name string `json:"nazwa"`
	Tone string `json:"ton"`
}

// Job encapsulates one end-to-end video generation request. It is created on
// submission, mutated exclusively by the claiming worker while running, and
// becomes immutable once Status reaches a terminal value.
type Job struct {
	SessionID       string    `json:"sesja_id"`
	Brief           string    `json:"brief"`
	Platforms       []string  `json:"platforma"`
	Brand           Brand     `json:"marka"`
	VisualStyle     string    `json:"styl_wizualny"`
	Voice           string    `json:"glos"`
	DurationSeconds int       `json:"dlugosc_sekund"`
	Status          JobStatus `json:"status"`
	ProgressPercent int       `json:"postep_procent"`
	Attempts        int       `json:"iteracje"`

	// Series linkage; zero values for standalone jobs.
	SeriesID      string `json:"seria_id,omitempty"`
	EpisodeNumber int    `json:"numer_odcinka,omitempty"`
	SeriesContext string `json:"-"`

	Result            *GenerationResult `json:"wynik,omitempty"`
	CostUSD           float64           `json:"koszt_usd"`
	GenerationSeconds float64           `json:"czas_generacji_s"`
	Errors            []string          `json:"bledy"`

	CreatedAt  time.Time  `json:"utworzono"`
	StartedAt  *time.Time `json:"rozpoczeto,omitempty"`
	FinishedAt *time.Time `json:"zakonczono,omitempty"`
}

// ValidateInput checks the submission bounds. Every path that creates a Job
// goes through it, including episode jobs spawned by series planning.
func (j *Job) ValidateInput() error {
	if n := len(j.Brief); n < BriefMinLength || n > BriefMaxLength {
		return ErrInvalidBrief
	}
	if len(j.Platforms) == 0 {
		return ErrNoPlatforms
	}
	for _, p := range j.Platforms {
		if !PlatformKnown(p) {
			return ErrUnknownPlatform
		}
	}
	if j.DurationSeconds < DurationMinSeconds || j.DurationSeconds > DurationMaxSeconds {
		return ErrInvalidDuration
	}
	return nil
}

// GenerationResult is the structured payload of a finished (or partial) job.
type GenerationResult struct {
	ContentPlan *ContentPlan   `json:"plan_tresci,omitempty"`
	Script      *Script        `json:"scenariusz,omitempty"`
	Quality     *QualityReview `json:"ocena_jakosci,omitempty"`
	Virality    *ScoreReport   `json:"ocena_wiralnosci,omitempty"`
	Video       *VideoArtifact `json:"wideo,omitempty"`
}

// VideoArtifact describes the composed MP4 and its derivatives.
type VideoArtifact struct {
	Path             string  `json:"sciezka_pliku"`
	ThumbnailPath    string  `json:"miniatura_sciezka"`
	Format           string  `json:"format"`
	Resolution       string  `json:"rozdzielczosc"`
	DurationSeconds  float64 `json:"czas_trwania"`
	SizeMB           float64 `json:"rozmiar_mb"`
	TikTokVariant    string  `json:"wariant_tiktok,omitempty"`
	YouTubeVariant   string  `json:"wariant_youtube,omitempty"`
	InstagramVariant string  `json:"wariant_instagram,omitempty"`
}
