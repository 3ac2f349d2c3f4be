package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/store"
	"github.com/veristat/apiserver/internal/trust"
	"github.com/veristat/apiserver/types"
)

// stubClassifier returns a fixed distribution regardless of input, so the
// tests pin the pipeline around it instead of a particular trained model.
type stubClassifier struct {
	probabilities []float64
}

func (s stubClassifier) PredictProba(_ []float64) ([]float64, error) {
	return s.probabilities, nil
}

type memPredictionRepo struct {
	rows   []types.Prediction
	nextID int64
}

func (m *memPredictionRepo) Create(_ context.Context, p types.Prediction) (types.Prediction, error) {
	m.nextID++
	p.ID = m.nextID
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memPredictionRepo) Get(_ context.Context, id int64) (types.Prediction, error) {
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return types.Prediction{}, store.ErrNotFound
}

func (m *memPredictionRepo) ListByUsername(_ context.Context, username string, limit int) ([]types.Prediction, error) {
	var out []types.Prediction
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].Username == username {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memPredictionRepo) List(_ context.Context, offset, limit int) ([]types.Prediction, int, error) {
	total := len(m.rows)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return m.rows[offset:end], total, nil
}

func (m *memPredictionRepo) Stats(_ context.Context) (types.PredictionStats, error) {
	stats := types.PredictionStats{
		Total:       len(m.rows),
		ByLabel:     map[string]int{},
		ByRiskLevel: map[string]int{},
	}
	for _, row := range m.rows {
		stats.ByLabel[row.Label]++
		stats.ByRiskLevel[row.RiskLevel]++
	}
	return stats, nil
}

// newTestExtractor loads a minimal artifact set from a temp dir, exercising
// the same load path the server uses at startup.
func newTestExtractor(t *testing.T) *model.Extractor {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		model.EncoderKey: `{"classes": ["barack obama", "other"]}`,
		model.VectorizerKey: `{
			"vocabulary": {"test": 0, "claim": 1},
			"idf": [1.0, 1.0],
			"n_features": 2
		}`,
		model.ClassifierKey: `{
			"n_classes": 2,
			"n_features": 5,
			"trees": [{
				"children_left": [-1],
				"children_right": [-1],
				"feature": [-2],
				"threshold": [-2],
				"value": [[1, 1]]
			}]
		}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	artifacts, err := model.Load(context.Background(), model.DirSource{Dir: dir}, "")
	require.NoError(t, err)
	return model.NewExtractor(artifacts.SpeakerEncoder, artifacts.Vectorizer)
}

func TestPredictionService_Predict(t *testing.T) {
	t.Parallel()

	repo := &memPredictionRepo{}
	svc := NewPredictionService(newTestExtractor(t), stubClassifier{probabilities: []float64{0.2, 0.8}}, repo)

	result, err := svc.Predict(context.Background(), "alice", types.PredictionInput{
		Statement: "Test claim",
		Sources:   "a.gov",
	})
	require.NoError(t, err)

	require.Equal(t, types.LabelReal, result.Label)
	require.InDelta(t, 0.8, result.Confidence, 1e-9)
	require.InDelta(t, 0.2, result.Probabilities.Fake, 1e-9)
	require.InDelta(t, 0.8, result.Probabilities.Real, 1e-9)
	require.Equal(t, 1, result.ExtractedFeatures.NumSources)
	require.True(t, result.ExtractedFeatures.HasOfficialSource)
	require.Equal(t, trust.RiskMedium, result.Trust.RiskLevel)
	require.Equal(t, trust.CategoryModeratelyConfident, result.Trust.ConfidenceCategory)

	// Two of four fields were supplied.
	require.InDelta(t, 50.0, result.Explainability.InputCompleteness, 1e-9)
	require.False(t, result.Explainability.SpeakerRecognized)
	require.Contains(t, result.Explainability.KeyFactors,
		"Cites at least one official source (.gov, .org, .edu)")
}

func TestPredictionService_PredictPersistsRow(t *testing.T) {
	t.Parallel()

	repo := &memPredictionRepo{}
	svc := NewPredictionService(newTestExtractor(t), stubClassifier{probabilities: []float64{0.9, 0.1}}, repo)

	input := types.PredictionInput{
		Statement: "A dubious claim",
		FullText:  "Longer context around the claim",
		Speaker:   "Barack Obama",
		Sources:   "example.com, blog.example.com",
	}
	result, err := svc.Predict(context.Background(), "bob", input)
	require.NoError(t, err)
	require.Equal(t, types.LabelFake, result.Label)

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	require.Equal(t, "bob", row.Username)
	require.Equal(t, input.Statement, row.Statement)
	require.Equal(t, input.FullText, row.FullText)
	require.Equal(t, input.Speaker, row.Speaker)
	require.Equal(t, input.Sources, row.Sources)
	require.Equal(t, result.Label, row.Label)
	require.InDelta(t, result.Confidence, row.Confidence, 1e-9)
	require.Equal(t, 2, row.NumSources)
	require.False(t, row.HasOfficialSource)
	require.Equal(t, trust.RiskLow, row.RiskLevel)
	require.InDelta(t, 100.0, row.InputCompleteness, 1e-9)
}

func TestPredictionService_PredictTieIsFake(t *testing.T) {
	t.Parallel()

	svc := NewPredictionService(newTestExtractor(t), stubClassifier{probabilities: []float64{0.5, 0.5}}, &memPredictionRepo{})

	result, err := svc.Predict(context.Background(), "alice", types.PredictionInput{Statement: "Even odds"})
	require.NoError(t, err)
	require.Equal(t, types.LabelFake, result.Label)
	require.InDelta(t, 0.5, result.Confidence, 1e-9)
	require.Equal(t, trust.RiskHigh, result.Trust.RiskLevel)
}

func TestPredictionService_PredictMissingInput(t *testing.T) {
	t.Parallel()

	repo := &memPredictionRepo{}
	svc := NewPredictionService(newTestExtractor(t), stubClassifier{probabilities: []float64{0.5, 0.5}}, repo)

	_, err := svc.Predict(context.Background(), "alice", types.PredictionInput{
		Speaker: "Someone",
		Sources: "a.gov",
	})
	require.ErrorIs(t, err, model.ErrMissingInput)
	require.Empty(t, repo.rows, "unusable input must not be persisted")
}

func TestPredictionService_HistoryNewestFirst(t *testing.T) {
	t.Parallel()

	repo := &memPredictionRepo{}
	svc := NewPredictionService(newTestExtractor(t), stubClassifier{probabilities: []float64{0.2, 0.8}}, repo)
	ctx := context.Background()

	_, err := svc.Predict(ctx, "alice", types.PredictionInput{Statement: "first"})
	require.NoError(t, err)
	_, err = svc.Predict(ctx, "alice", types.PredictionInput{Statement: "second"})
	require.NoError(t, err)
	_, err = svc.Predict(ctx, "bob", types.PredictionInput{Statement: "someone else"})
	require.NoError(t, err)

	history, err := svc.History(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "second", history[0].Statement)
	require.Equal(t, "first", history[1].Statement)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 3, stats.ByLabel[types.LabelReal])
}
