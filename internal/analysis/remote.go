package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"pkt.systems/tabforge/schema"
)

// ResponseError is a non-2xx reply from the analyze endpoint.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Error: %d - %s", e.Status, e.Body)
}

// TransportError is a failure to reach the analyze endpoint.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "Network error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteClient posts images to a remote analyze endpoint.
type RemoteClient struct {
	endpoint string
	http     *http.Client
}

// NewRemoteClient constructs a client for endpoint, the full URL of
// /api/analyze-image. A nil client uses http.DefaultClient.
func NewRemoteClient(endpoint string, client *http.Client) *RemoteClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteClient{endpoint: strings.TrimSpace(endpoint), http: client}
}

// AnalyzeImage uploads image as the multipart field "image".
func (c *RemoteClient) AnalyzeImage(ctx context.Context, image []byte, mime string) (schema.AnalysisResponse, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="upload"`)
	if mime != "" {
		header.Set("Content-Type", mime)
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return schema.AnalysisResponse{}, err
	}
	if _, err := part.Write(image); err != nil {
		return schema.AnalysisResponse{}, err
	}
	if err := form.Close(); err != nil {
		return schema.AnalysisResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return schema.AnalysisResponse{}, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return schema.AnalysisResponse{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.AnalysisResponse{}, &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return schema.AnalysisResponse{}, &ResponseError{Status: resp.StatusCode, Body: string(data)}
	}
	var decoded schema.AnalysisResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return schema.AnalysisResponse{}, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return decoded, nil
}
