package model

import (
	"errors"
	"strings"

	"github.com/veristat/apiserver/types"
)

// ErrMissingInput is returned when neither statement nor full text carries
// any content; at least one textual field is mandatory.
var ErrMissingInput = errors.New("either statement or full_text must be provided")

// The numeric features that precede the text block in the training order:
// speaker code, source count, official-source flag.
const numLeadingFeatures = 3

// Source substrings that mark a source as official.
var officialPatterns = []string{".gov", ".org", ".edu"}

// Extractor turns raw prediction input into the feature vector the
// classifier was fit on. The field order of the vector is a load-bearing
// contract with the artifact: any deviation silently produces garbage
// predictions rather than an error.
type Extractor struct {
	encoder    *LabelEncoder
	vectorizer *TfidfVectorizer
}

func NewExtractor(encoder *LabelEncoder, vectorizer *TfidfVectorizer) *Extractor {
	return &Extractor{
		encoder:    encoder,
		vectorizer: vectorizer,
	}
}

// ParseSources splits a comma-separated source list, dropping blanks, and
// flags whether any surviving entry looks official. Empty input yields
// (0, false) without error.
func ParseSources(raw string) (int, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false
	}

	count := 0
	hasOfficial := false
	for _, source := range strings.Split(raw, ",") {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		count++

		lower := strings.ToLower(source)
		for _, pattern := range officialPatterns {
			if strings.Contains(lower, pattern) {
				hasOfficial = true
				break
			}
		}
	}
	return count, hasOfficial
}

// Build assembles the feature vector in training order:
// [speaker_code, num_sources, has_official_source, tfidf...].
func (e *Extractor) Build(input types.PredictionInput) ([]float64, int, bool, error) {
	if strings.TrimSpace(input.Statement) == "" && strings.TrimSpace(input.FullText) == "" {
		return nil, 0, false, ErrMissingInput
	}

	speakerCode := e.encoder.Encode(input.Speaker)
	numSources, hasOfficial := ParseSources(input.Sources)

	combined := strings.TrimSpace(input.Statement + " " + input.FullText)
	textFeatures := e.vectorizer.Transform(combined)

	features := make([]float64, 0, numLeadingFeatures+len(textFeatures))
	features = append(features, float64(speakerCode), float64(numSources), boolToFloat(hasOfficial))
	features = append(features, textFeatures...)
	return features, numSources, hasOfficial, nil
}

// SpeakerRecognized reports whether the speaker was part of the trained
// vocabulary, for the explainability rationale.
func (e *Extractor) SpeakerRecognized(speaker string) bool {
	return e.encoder.Recognized(speaker)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
