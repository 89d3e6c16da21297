package schema

// AnalysisResponse is the success body of the analyze endpoint.
type AnalysisResponse struct {
	Success    bool     `json:"success"`
	TabHeaders []string `json:"tabHeaders"`
	Analysis   string   `json:"analysis"`
}

// ErrorResponse is the failure body of the analyze endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
