package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JaimeStill/specimen/pkg/tensor"
)

const maxRemoteResponse = 4 << 20

// RemoteLoader targets a TensorFlow Serving REST endpoint. Labels are read
// locally; the model itself stays on the server.
type RemoteLoader struct {
	URL        string
	Name       string
	LabelsPath string
	Input      tensor.Shape
	Client     *http.Client
}

func (l *RemoteLoader) Backend() string {
	return BackendRemote
}

type modelStatus struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// Load reads the labels and confirms the served model has an AVAILABLE version.
func (l *RemoteLoader) Load(ctx context.Context) (*Bundle, error) {
	labels, err := ReadLabels(l.LabelsPath)
	if err != nil {
		return nil, err
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(l.URL, "/") + "/v1/models/" + l.Name

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query model status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model status: unexpected status %d", resp.StatusCode)
	}

	var status modelStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteResponse)).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode model status: %w", err)
	}

	available := false
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			available = true
			break
		}
	}
	if !available {
		return nil, fmt.Errorf("model %s has no available version", l.Name)
	}

	return &Bundle{
		Model: &RemoteModel{
			predictURL: base + ":predict",
			input:      l.Input,
			client:     client,
		},
		Labels: labels,
	}, nil
}

// RemoteModel forwards predictions to a TensorFlow Serving predict endpoint.
type RemoteModel struct {
	predictURL string
	input      tensor.Shape
	client     *http.Client
}

func (m *RemoteModel) InputShape() tensor.Shape {
	return m.input
}

func (m *RemoteModel) Outputs() int {
	return 0
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

func (m *RemoteModel) Predict(ctx context.Context, t *tensor.Tensor) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][][]float32{nest(t)}})
	if err != nil {
		return nil, fmt.Errorf("encode instances: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.predictURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteResponse)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predictions (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict: status %d: %s", resp.StatusCode, out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("predict: expected 1 prediction, got %d", len(out.Predictions))
	}

	return out.Predictions[0], nil
}

// nest converts the first sample of t into the HxWxC nested form TF Serving expects.
func nest(t *tensor.Tensor) [][][]float32 {
	s := t.Shape
	rows := make([][][]float32, s.Height)
	for y := range s.Height {
		row := make([][]float32, s.Width)
		for x := range s.Width {
			start := t.Index(0, y, x, 0)
			px := make([]float32, s.Channels)
			copy(px, t.Data[start:start+s.Channels])
			row[x] = px
		}
		rows[y] = row
	}
	return rows
}
