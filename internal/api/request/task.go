package request

// SubmitTaskRequest is the body of POST /api/worker/task.
type SubmitTaskRequest struct {
	Type        string `json:"type"`
	Path        string `json:"path,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	PreferCache *bool  `json:"preferCache,omitempty"`
}
