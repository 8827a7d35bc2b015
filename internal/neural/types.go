package neural

// Device selects where the recognition model runs.
type Device string

const (
	// DeviceGPU requests CUDA/MPS inference
	DeviceGPU Device = "gpu"
	// DeviceCPU requests CPU inference
	DeviceCPU Device = "cpu"
	// DeviceAuto lets the server pick
	DeviceAuto Device = "auto"
)

// RecognizeRequest represents a request to the recognition API
type RecognizeRequest struct {
	Model  string `json:"model"`
	Image  string `json:"image"` // base64 encoded PNG
	Device string `json:"device,omitempty"`
}

// RecognizeResponse represents a response from the recognition API
type RecognizeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
	Device     string  `json:"device,omitempty"`
	DurationMS int64   `json:"duration_ms,omitempty"`
}

// ModelInfo describes one model known to the server
type ModelInfo struct {
	Name   string `json:"name"`
	Loaded bool   `json:"loaded"`
	Device string `json:"device,omitempty"`
}

// ListModelsResponse represents a response from the list models API
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ErrorResponse represents an error response from the server
type ErrorResponse struct {
	Error string `json:"error"`
}
