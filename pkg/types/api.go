package types

// PredictionResponse is returned by POST / and POST /predict when the client
// asks for JSON.
type PredictionResponse struct {
	// Predicted trash category.
	// example: Plastic
	Prediction string `json:"prediction" example:"Plastic"`
	// Confidence of the prediction as a percentage, rounded to two decimals.
	// example: 87.42
	Confidence float64 `json:"confidence" example:"87.42"`
	// Per-class scores keyed by label, in [0,1].
	Scores map[string]float64 `json:"scores,omitempty"`
	// Server-generated storage key of the uploaded image.
	// example: 3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg
	UploadID string `json:"upload_id" example:"3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg"`
	// URL the uploaded image can be fetched from.
	// example: /uploads/3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg
	ImageURL string `json:"image_url" example:"/uploads/3f2b9c1e-8a51-4f5e-9a53-0c0f1e2d3a4b.jpg"`
	// Client filename, for display only.
	// example: bottle.jpg
	Filename string `json:"filename" example:"bottle.jpg"`
}

// AdviceRequest is the body of POST /get_disposal_suggestion.
type AdviceRequest struct {
	// Trash category to get advice for.
	// example: Plastic
	TrashType string `json:"trash_type" example:"Plastic"`
}

// AdviceResponse carries the advice text exactly as the backend produced it.
type AdviceResponse struct {
	// example: 1. Primary Disposal Method ...
	Suggestion string `json:"suggestion" example:"1. Primary Disposal Method ..."`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: No file uploaded
	Error string `json:"error" example:"No file uploaded"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// IndexResponse is returned by GET / for non-HTML clients.
type IndexResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// Class names in index order.
	Classes []string `json:"classes"`
	// Whether POST /get_disposal_suggestion can reach a backend.
	// example: true
	AdviceEnabled bool `json:"advice_enabled" example:"true"`
}

// LabelsResponse is returned by GET /labels.
type LabelsResponse struct {
	Labels []Label `json:"labels"`
}
