package ml

import (
	"fmt"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"athena/pkg/errors"
)

// ONNXModel wraps an ONNX Runtime session for classifier inference.
// The label set is deployment-specific and supplied at load time.
type ONNXModel struct {
	session     *onnxruntime.DynamicAdvancedSession
	labels      []string
	inputName   string
	outputNames []string
}

// LoadONNXModel loads an ONNX classifier from file. The model is expected
// to expose an "input" feature vector and "output"/"probabilities" outputs.
func LoadONNXModel(modelPath string, labels []string) (*ONNXModel, error) {
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "classifier label set is empty")
	}

	// Initialize ONNX runtime environment (only once)
	err := onnxruntime.InitializeEnvironment()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX runtime")
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"output", "probabilities"}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &ONNXModel{
		session:     session,
		labels:      labels,
		inputName:   "input",
		outputNames: []string{"output", "probabilities"},
	}, nil
}

// Predict runs inference on the given feature vector. Returns the
// predicted label and the probability per label.
func (m *ONNXModel) Predict(features []float64) (string, map[string]float64, error) {
	if m.session == nil {
		return "", nil, errors.New("model session is nil")
	}

	// Input tensor: shape [1, num_features]
	inputShape := onnxruntime.NewShape(1, int64(len(features)))
	inputTensor, err := onnxruntime.NewTensor(inputShape, features)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	// Output 1: predicted class index (int64, shape [1])
	classOutput := make([]int64, 1)
	classShape := onnxruntime.NewShape(1)
	classTensor, err := onnxruntime.NewTensor(classShape, classOutput)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create class output tensor")
	}
	defer classTensor.Destroy()

	// Output 2: probabilities (float64, shape [1, num_labels])
	probOutput := make([]float64, len(m.labels))
	probShape := onnxruntime.NewShape(1, int64(len(m.labels)))
	probTensor, err := onnxruntime.NewTensor(probShape, probOutput)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create probabilities output tensor")
	}
	defer probTensor.Destroy()

	inputs := []onnxruntime.Value{inputTensor}
	outputs := []onnxruntime.Value{classTensor, probTensor}
	if err := m.session.Run(inputs, outputs); err != nil {
		return "", nil, errors.Wrap(err, "inference failed")
	}

	predicted := int(classOutput[0])
	if predicted < 0 || predicted >= len(m.labels) {
		return "", nil, fmt.Errorf("invalid class index: %d", predicted)
	}

	probMap := make(map[string]float64, len(m.labels))
	for i, prob := range probOutput {
		probMap[m.labels[i]] = prob
	}

	return m.labels[predicted], probMap, nil
}

// Labels returns the label set the model predicts over.
func (m *ONNXModel) Labels() []string {
	return m.labels
}

// Destroy cleans up the ONNX session.
func (m *ONNXModel) Destroy() {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
}
