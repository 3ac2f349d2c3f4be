package model

import (
	"errors"
	"strings"
)

// fallbackClass absorbs every speaker outside the training vocabulary.
const fallbackClass = "other"

// LabelEncoder maps a speaker name to the integer code assigned when the
// encoder was fit. Classes holds the fitted vocabulary in its training
// order; the code of a class is its index in that slice.
type LabelEncoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

func (e *LabelEncoder) validate() error {
	if len(e.Classes) == 0 {
		return errors.New("encoder has no classes")
	}
	e.index = make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		e.index[class] = i
	}
	if _, ok := e.index[fallbackClass]; !ok {
		return errors.New("encoder vocabulary lacks the fallback class")
	}
	return nil
}

// Encode normalizes the speaker and returns its code, substituting the
// fallback class for anything outside the vocabulary. Open-vocabulary input
// must never fail here.
func (e *LabelEncoder) Encode(speaker string) int {
	normalized := strings.ToLower(strings.TrimSpace(speaker))
	if code, ok := e.index[normalized]; ok {
		return code
	}
	return e.index[fallbackClass]
}

// Recognized reports whether the speaker is part of the trained vocabulary,
// excluding the fallback class itself.
func (e *LabelEncoder) Recognized(speaker string) bool {
	normalized := strings.ToLower(strings.TrimSpace(speaker))
	if normalized == "" || normalized == fallbackClass {
		return false
	}
	_, ok := e.index[normalized]
	return ok
}
