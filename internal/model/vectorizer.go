package model

import (
	"errors"
	"math"
	"regexp"
	"strings"
)

// Tokenization matches the scheme used when the vectorizer was fit:
// lowercase, words of two or more characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// TfidfVectorizer applies a fixed-vocabulary term-frequency /
// inverse-document-frequency transform fit at training time. The output
// dimensionality is artifact-defined and never changes at runtime.
type TfidfVectorizer struct {
	// Vocabulary maps a term to its output column.
	Vocabulary map[string]int `json:"vocabulary"`

	// IDF holds the per-column inverse-document-frequency weights.
	IDF []float64 `json:"idf"`

	// NumFeatures is the output dimensionality.
	NumFeatures int `json:"n_features"`
}

func (v *TfidfVectorizer) validate() error {
	if v.NumFeatures <= 0 {
		return errors.New("vectorizer has no features")
	}
	if len(v.IDF) != v.NumFeatures {
		return errors.New("vectorizer idf length does not match feature count")
	}
	for term, column := range v.Vocabulary {
		if column < 0 || column >= v.NumFeatures {
			return errors.New("vectorizer vocabulary column out of range: " + term)
		}
	}
	return nil
}

// Transform converts text into a dense, L2-normalized tf-idf vector of
// exactly NumFeatures entries. Out-of-vocabulary terms are dropped.
func (v *TfidfVectorizer) Transform(text string) []float64 {
	features := make([]float64, v.NumFeatures)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, token := range tokens {
		if column, ok := v.Vocabulary[token]; ok {
			features[column] += v.IDF[column]
		}
	}

	var sumSquares float64
	for _, value := range features {
		sumSquares += value * value
	}
	if sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for i := range features {
			features[i] /= norm
		}
	}
	return features
}
