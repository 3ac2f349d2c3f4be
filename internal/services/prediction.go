package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/mq"
	"github.com/veristat/apiserver/internal/trust"
	"github.com/veristat/apiserver/types"
)

// PredictionRepository defines persistence operations for the history.
type PredictionRepository interface {
	Create(ctx context.Context, p types.Prediction) (types.Prediction, error)
	Get(ctx context.Context, id int64) (types.Prediction, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]types.Prediction, error)
	List(ctx context.Context, offset, limit int) ([]types.Prediction, int, error)
	Stats(ctx context.Context) (types.PredictionStats, error)
}

// PredictionEvent is the audit payload published after a prediction is
// persisted.
type PredictionEvent struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	RiskLevel  string    `json:"risk_level"`
	Timestamp  time.Time `json:"timestamp"`
}

// PredictionService runs the extract → infer → score pipeline, persists the
// history row, and publishes the audit event.
type PredictionService struct {
	extractor  *model.Extractor
	classifier model.Classifier
	repo       PredictionRepository

	// events is optional; nil disables publishing.
	events       *mq.MQ
	eventChannel string
}

func NewPredictionService(extractor *model.Extractor, classifier model.Classifier, repo PredictionRepository) *PredictionService {
	return &PredictionService{
		extractor:  extractor,
		classifier: classifier,
		repo:       repo,
	}
}

// WithEvents enables best-effort audit publishing on the named channel.
func (s *PredictionService) WithEvents(events *mq.MQ, channel string) *PredictionService {
	s.events = events
	s.eventChannel = channel
	return s
}

// Predict classifies one statement. model.ErrMissingInput flags unusable
// input; any other failure is an internal artifact/feature contract
// violation and is propagated as-is.
func (s *PredictionService) Predict(ctx context.Context, username string, input types.PredictionInput) (types.PredictionResult, error) {
	features, numSources, hasOfficial, err := s.extractor.Build(input)
	if err != nil {
		return types.PredictionResult{}, err
	}

	probabilities, err := s.classifier.PredictProba(features)
	if err != nil {
		return types.PredictionResult{}, fmt.Errorf("inference failed: %w", err)
	}
	if len(probabilities) != 2 {
		return types.PredictionResult{}, fmt.Errorf("inference produced %d classes, want 2", len(probabilities))
	}

	// Class index 1 is Real; confidence is the winning probability.
	label := types.LabelFake
	confidence := probabilities[0]
	if probabilities[1] > probabilities[0] {
		label = types.LabelReal
		confidence = probabilities[1]
	}

	speakerRecognized := s.extractor.SpeakerRecognized(input.Speaker)
	result := types.PredictionResult{
		Label:      label,
		Confidence: confidence,
		Probabilities: types.Probabilities{
			Fake: probabilities[0],
			Real: probabilities[1],
		},
		ExtractedFeatures: types.ExtractedFeatures{
			NumSources:        numSources,
			HasOfficialSource: hasOfficial,
		},
		Trust:          trust.RiskTier(confidence),
		Explainability: trust.Explain(input, numSources, hasOfficial, speakerRecognized),
		Timestamp:      time.Now(),
	}

	record, err := s.repo.Create(ctx, types.Prediction{
		Username:          username,
		Statement:         input.Statement,
		FullText:          input.FullText,
		Speaker:           input.Speaker,
		Sources:           input.Sources,
		Label:             result.Label,
		Confidence:        result.Confidence,
		NumSources:        numSources,
		HasOfficialSource: hasOfficial,
		RiskLevel:         result.Trust.RiskLevel,
		InputCompleteness: result.Explainability.InputCompleteness,
		CreatedAt:         result.Timestamp,
	})
	if err != nil {
		return types.PredictionResult{}, err
	}

	s.publishEvent(ctx, record)
	return result, nil
}

// publishEvent is synchronous and best-effort: a broker failure is logged
// and never fails the prediction.
func (s *PredictionService) publishEvent(ctx context.Context, record types.Prediction) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(PredictionEvent{
		ID:         record.ID,
		Username:   record.Username,
		Label:      record.Label,
		Confidence: record.Confidence,
		RiskLevel:  record.RiskLevel,
		Timestamp:  record.CreatedAt,
	})
	if err != nil {
		log.Printf("prediction event marshal failed: %v", err)
		return
	}

	if _, err := s.events.Publish(ctx, s.eventChannel, payload, map[string]string{
		"label": record.Label,
	}); err != nil {
		log.Printf("prediction event publish failed: %v", err)
	}
}

// History returns the user's own predictions, newest first.
func (s *PredictionService) History(ctx context.Context, username string, limit int) ([]types.Prediction, error) {
	return s.repo.ListByUsername(ctx, username, limit)
}

// Get returns a single history row.
func (s *PredictionService) Get(ctx context.Context, id int64) (types.Prediction, error) {
	return s.repo.Get(ctx, id)
}

// ListAll returns history across users for the admin view.
func (s *PredictionService) ListAll(ctx context.Context, offset, limit int) ([]types.Prediction, int, error) {
	return s.repo.List(ctx, offset, limit)
}

// Stats aggregates the history for the admin dashboard.
func (s *PredictionService) Stats(ctx context.Context) (types.PredictionStats, error) {
	return s.repo.Stats(ctx)
}
