// Package trust derives the risk tier and the human-readable rationale for
// a prediction. Everything here is pure: it only reads values already
// computed by the extractor and the classifier.
package trust

import (
	"math"
	"strings"

	"github.com/veristat/apiserver/types"
)

// Risk tiers surfaced to end users.
const (
	RiskLow    = "Low Risk"
	RiskMedium = "Medium Risk"
	RiskHigh   = "High Risk"
)

// Confidence categories paired with the tiers.
const (
	CategoryVeryConfident       = "Very Confident"
	CategoryModeratelyConfident = "Moderately Confident"
	CategoryLowConfidence       = "Low Confidence"
)

// Tier thresholds. Each tier is inclusive on its lower bound.
const (
	lowRiskThreshold    = 0.85
	mediumRiskThreshold = 0.70
)

// RiskTier maps a confidence score to its tier and category.
func RiskTier(confidence float64) types.Trust {
	switch {
	case confidence >= lowRiskThreshold:
		return types.Trust{RiskLevel: RiskLow, ConfidenceCategory: CategoryVeryConfident}
	case confidence >= mediumRiskThreshold:
		return types.Trust{RiskLevel: RiskMedium, ConfidenceCategory: CategoryModeratelyConfident}
	default:
		return types.Trust{RiskLevel: RiskHigh, ConfidenceCategory: CategoryLowConfidence}
	}
}

// fieldCheck is one entry of the input checklist. Adding a field to the
// rationale is a data change here, not a control-flow change.
type fieldCheck struct {
	value   string
	warning string
}

// Explain builds the rationale from input completeness and provenance.
// Provenance factors only speak to fields the caller actually provided;
// a blank field contributes its missing-field warning and nothing else.
func Explain(input types.PredictionInput, numSources int, hasOfficial bool, speakerRecognized bool) types.Explainability {
	checklist := []fieldCheck{
		{input.Statement, "No statement provided"},
		{input.FullText, "No full text provided; prediction is based on the statement alone"},
		{input.Speaker, "No speaker provided"},
		{input.Sources, "No sources provided"},
	}

	explainability := types.Explainability{
		KeyFactors:        []string{},
		Warnings:          []string{},
		SpeakerRecognized: speakerRecognized,
	}

	present := 0
	for _, check := range checklist {
		if strings.TrimSpace(check.value) == "" {
			explainability.Warnings = append(explainability.Warnings, check.warning)
			continue
		}
		present++
	}
	explainability.InputCompleteness = round2(float64(present) / float64(len(checklist)) * 100)

	if strings.TrimSpace(input.Speaker) != "" {
		if speakerRecognized {
			explainability.KeyFactors = append(explainability.KeyFactors,
				"Speaker is part of the known speaker set")
		} else {
			explainability.KeyFactors = append(explainability.KeyFactors,
				"Speaker was not seen during training and is treated as 'other'")
			explainability.Warnings = append(explainability.Warnings,
				"Unrecognized speaker")
		}
	}

	if strings.TrimSpace(input.Sources) != "" {
		if hasOfficial {
			explainability.KeyFactors = append(explainability.KeyFactors,
				"Cites at least one official source (.gov, .org, .edu)")
		} else if numSources > 0 {
			explainability.Warnings = append(explainability.Warnings,
				"No official source (.gov, .org, .edu) among the cited sources")
		}
	}

	return explainability
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
