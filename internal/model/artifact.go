// Package model loads the pretrained classifier, text vectorizer, and
// speaker encoder artifacts and turns raw prediction input into the
// fixed-order feature vector the classifier was fit on.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Artifact object keys within the configured bucket or directory.
const (
	ClassifierKey = "classifier.json"
	VectorizerKey = "tfidf_vectorizer.json"
	EncoderKey    = "speaker_label_encoder.json"
	ManifestKey   = "manifest.json"
)

// Source fetches artifact objects by key. storage.Storage satisfies it.
type Source interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Artifacts bundles the three pretrained objects. It is built once at
// startup and shared read-only across requests; nothing mutates it
// afterwards, so concurrent use needs no synchronization.
type Artifacts struct {
	Classifier     *Forest
	Vectorizer     *TfidfVectorizer
	SpeakerEncoder *LabelEncoder
	Version        string
}

type manifest struct {
	Version string `json:"version"`
}

// Load fetches and decodes all three artifacts. Any missing or malformed
// artifact fails the load; the process must not serve traffic without a
// complete set.
func Load(ctx context.Context, src Source, prefix string) (*Artifacts, error) {
	var forest Forest
	if err := fetch(ctx, src, path.Join(prefix, ClassifierKey), &forest); err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	if err := forest.validate(); err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}

	var vectorizer TfidfVectorizer
	if err := fetch(ctx, src, path.Join(prefix, VectorizerKey), &vectorizer); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}
	if err := vectorizer.validate(); err != nil {
		return nil, fmt.Errorf("load vectorizer: %w", err)
	}

	var encoder LabelEncoder
	if err := fetch(ctx, src, path.Join(prefix, EncoderKey), &encoder); err != nil {
		return nil, fmt.Errorf("load speaker encoder: %w", err)
	}
	if err := encoder.validate(); err != nil {
		return nil, fmt.Errorf("load speaker encoder: %w", err)
	}

	// The numeric features precede the text block in the training order.
	wantFeatures := numLeadingFeatures + vectorizer.NumFeatures
	if forest.NumFeatures != wantFeatures {
		return nil, fmt.Errorf(
			"artifact mismatch: classifier expects %d features, extractor produces %d",
			forest.NumFeatures, wantFeatures,
		)
	}

	artifacts := &Artifacts{
		Classifier:     &forest,
		Vectorizer:     &vectorizer,
		SpeakerEncoder: &encoder,
	}

	// The manifest is optional metadata; a missing one is not fatal.
	var m manifest
	if err := fetch(ctx, src, path.Join(prefix, ManifestKey), &m); err == nil {
		artifacts.Version = m.Version
	}

	return artifacts, nil
}

func fetch(ctx context.Context, src Source, key string, v any) error {
	reader, err := src.Get(ctx, key)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// DirSource serves artifacts from a local directory, for dev setups that
// skip object storage.
type DirSource struct {
	Dir string
}

func (d DirSource) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.Dir, filepath.FromSlash(key)))
}
