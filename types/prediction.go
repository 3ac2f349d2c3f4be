package types

import "time"

// Prediction labels produced by the classifier. Class index 1 maps to Real.
const (
	LabelFake = "Fake"
	LabelReal = "Real"
)

// PredictionInput is the raw user input for one classification request.
// Only Statement or FullText is required; everything else defaults to empty.
// It is never mutated after construction.
type PredictionInput struct {
	// Statement is the main claim or headline.
	Statement string `json:"statement"`

	// FullText is the full article text or supporting context.
	FullText string `json:"full_text"`

	// Speaker is the person or organization behind the statement.
	Speaker string `json:"speaker"`

	// Sources is a comma-separated list of source URLs or names.
	Sources string `json:"sources"`
}

// Probabilities is the two-class distribution returned by the model.
// The entries sum to 1 up to floating-point tolerance.
type Probabilities struct {
	Fake float64 `json:"fake"`
	Real float64 `json:"real"`
}

// ExtractedFeatures surfaces the source-derived features that went into the
// feature vector, for transparency in the response.
type ExtractedFeatures struct {
	NumSources        int  `json:"num_sources"`
	HasOfficialSource bool `json:"has_official_source"`
}

// Trust is the confidence-derived risk annotation shown to end users.
type Trust struct {
	RiskLevel          string `json:"risk_level"`
	ConfidenceCategory string `json:"confidence_category"`
}

// Explainability is the surface-level rationale for a prediction, derived
// from input completeness and provenance rather than model internals.
type Explainability struct {
	KeyFactors []string `json:"key_factors"`
	Warnings   []string `json:"warnings"`

	// InputCompleteness is the percentage of the four input fields that
	// were non-blank, rounded to two decimals.
	InputCompleteness float64 `json:"input_completeness"`

	SpeakerRecognized bool `json:"speaker_recognized"`
}

// PredictionResult is the full annotated model decision for one request.
// It is created once per request and immutable afterwards.
type PredictionResult struct {
	Label             string            `json:"label"`
	Confidence        float64           `json:"confidence"`
	Probabilities     Probabilities     `json:"probabilities"`
	ExtractedFeatures ExtractedFeatures `json:"extracted_features"`
	Trust             Trust             `json:"trust"`
	Explainability    Explainability    `json:"explainability"`
	Timestamp         time.Time         `json:"timestamp"`
}

// Prediction is one persisted history row: the input alongside the parts of
// the result the dashboards consume.
type Prediction struct {
	ID                int64     `json:"id" db:"id"`
	Username          string    `json:"username" db:"username"`
	Statement         string    `json:"statement" db:"statement"`
	FullText          string    `json:"full_text" db:"full_text"`
	Speaker           string    `json:"speaker" db:"speaker"`
	Sources           string    `json:"sources" db:"sources"`
	Label             string    `json:"label" db:"label"`
	Confidence        float64   `json:"confidence" db:"confidence"`
	NumSources        int       `json:"num_sources" db:"num_sources"`
	HasOfficialSource bool      `json:"has_official_source" db:"has_official_source"`
	RiskLevel         string    `json:"risk_level" db:"risk_level"`
	InputCompleteness float64   `json:"input_completeness" db:"input_completeness"`
	CreatedAt         time.Time `json:"timestamp" db:"created_at"`
}

// PredictionStats aggregates the history for the admin dashboard.
type PredictionStats struct {
	Total       int            `json:"total"`
	ByLabel     map[string]int `json:"by_label"`
	ByRiskLevel map[string]int `json:"by_risk_level"`
}
