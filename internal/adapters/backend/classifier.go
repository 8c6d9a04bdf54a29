package backend

import (
	"context"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/internal/ml"
	"athena/pkg/errors"
	"athena/pkg/logger"
)

// Predictor abstracts the trained classifier model so the adapter can be
// exercised without an ONNX session.
type Predictor interface {
	Predict(features []float64) (string, map[string]float64, error)
}

// ClassifierAdapter dispatches feature-vector queries to a trained neural
// classifier. Inference runs in its own goroutine so a caller timeout is
// honored even though the underlying runtime is non-interruptible.
type ClassifierAdapter struct {
	predictor Predictor
	log       *logger.Logger
}

// NewClassifierAdapter creates the adapter around an existing predictor.
func NewClassifierAdapter(predictor Predictor) *ClassifierAdapter {
	return &ClassifierAdapter{
		predictor: predictor,
		log:       logger.Get().With("component", "classifier_adapter"),
	}
}

// LoadClassifierAdapter loads the ONNX model at modelPath and wraps it.
func LoadClassifierAdapter(modelPath string, labels []string) (*ClassifierAdapter, error) {
	m, err := ml.LoadONNXModel(modelPath, labels)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load classifier model")
	}
	return NewClassifierAdapter(m), nil
}

// Kind returns the backend family this adapter serves.
func (a *ClassifierAdapter) Kind() model.BackendKind {
	return model.KindClassifier
}

type prediction struct {
	label  string
	scores map[string]float64
	err    error
}

// Invoke runs classifier inference and translates the result into the
// canonical classification shape.
func (a *ClassifierAdapter) Invoke(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error) {
	if len(req.Features) == 0 {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrInvalidInput, "classifier requires a feature vector"))
	}

	done := make(chan prediction, 1)
	go func() {
		label, scores, err := a.predictor.Predict(req.Features)
		done <- prediction{label: label, scores: scores, err: err}
	}()

	select {
	case <-ctx.Done():
		// Inference cannot be cancelled; return promptly and let the
		// goroutine finish on its own.
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(ctx.Err(), "inference timed out"))
	case p := <-done:
		if p.err != nil {
			return nil, newAdapterError(a.Kind(), false, errors.Wrap(p.err, "inference failed"))
		}

		confidence := 0.0
		for _, score := range p.scores {
			if score > confidence {
				confidence = score
			}
		}

		return &query.Response{
			ModelID: desc.ID,
			Kind:    desc.Kind,
			Classification: &query.ClassificationResult{
				Label:  p.label,
				Scores: p.scores,
			},
			Confidence: confidence,
		}, nil
	}
}
