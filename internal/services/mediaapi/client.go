package mediaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"clipcraft/internal/services"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultUploadTimeout  = 10 * time.Minute
	defaultUserAgent      = "clipcraft/dev"
	errorBodyLimit        = 4096
	requestIDHeader       = "X-Request-ID"
)

// Config describes the processing service client configuration.
type Config struct {
	// APIRoot is the absolute service API root, e.g. http://127.0.0.1:8000/api.
	APIRoot        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	UserAgent      string
	HTTPClient     *http.Client
}

// Client wraps the processing service REST API.
type Client struct {
	root           *url.URL
	userAgent      string
	http           *http.Client
	requestTimeout time.Duration
	uploadTimeout  time.Duration
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.APIRoot)
	if base == "" {
		return nil, errors.New("mediaapi: api root is required")
	}
	root, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("mediaapi: parse api root: %w", err)
	}
	if root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("mediaapi: api root %q must be absolute", base)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		root:           root,
		userAgent:      userAgent,
		http:           client,
		requestTimeout: requestTimeout,
		uploadTimeout:  uploadTimeout,
	}, nil
}

// StatusError reports a non-success response, carrying the server-supplied
// message when one was present.
type StatusError struct {
	Operation  string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	if detail == "" {
		return fmt.Sprintf("%s: http %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Operation, e.StatusCode, detail)
}

// UploadRequest describes one asset upload.
type UploadRequest struct {
	FileName    string
	ContentType string
	FileType    string
	Body        io.Reader
}

// UploadResponse is the store's answer to an upload.
type UploadResponse struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"filename"`
	FilePath    string `json:"file_path"`
	DownloadURL string `json:"download_url"`
	FileType    string `json:"file_type"`
}

// SubmitResponse is the service's answer to a job submission. Some
// deployments nest the handle under "data".
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   *struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// JobID returns the task handle from either response shape.
func (r SubmitResponse) JobID() string {
	if id := strings.TrimSpace(r.TaskID); id != "" {
		return id
	}
	if r.Data != nil {
		return strings.TrimSpace(r.Data.TaskID)
	}
	return ""
}

// StatusResponse is one job status observation.
type StatusResponse struct {
	TaskID string     `json:"task_id"`
	Status string     `json:"status"`
	Result *JobResult `json:"result"`
	Error  string     `json:"error"`
}

// JobResult is the terminal payload of a completed job.
type JobResult struct {
	DownloadURL    string `json:"download_url"`
	OutputFilename string `json:"output_filename"`
	Message        string `json:"message"`
}

// Upload submits a binary asset as a multipart form with "file" and
// "file_type" fields.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	var out UploadResponse
	if c == nil {
		return out, errors.New("mediaapi: client is nil")
	}
	if req.Body == nil {
		return out, errors.New("mediaapi upload: body is required")
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, req))
	}()
	defer pr.Close()

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.root.JoinPath("files", "upload").String(), pr)
	if err != nil {
		return out, fmt.Errorf("mediaapi upload: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	if err := c.doJSON(httpReq, "mediaapi upload", &out); err != nil {
		return out, err
	}
	return out, nil
}

func writeUploadForm(form *multipart.Writer, req UploadRequest) error {
	if err := form.WriteField("file_type", req.FileType); err != nil {
		return fmt.Errorf("write field: %w", err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	if req.ContentType != "" {
		header.Set("Content-Type", req.ContentType)
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return fmt.Errorf("read asset: %w", err)
	}
	return form.Close()
}

// Submit posts a job request to the route below {api_root}/process.
func (c *Client) Submit(ctx context.Context, segments []string, payload any) (SubmitResponse, error) {
	var out SubmitResponse
	if c == nil {
		return out, errors.New("mediaapi: client is nil")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("mediaapi submit: encode body: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	endpoint := c.root.JoinPath(append([]string{"process"}, segments...)...)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(encoded))
	if err != nil {
		return out, fmt.Errorf("mediaapi submit: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.doJSON(req, "mediaapi submit", &out); err != nil {
		return out, err
	}
	return out, nil
}

// Status queries the state of a submitted job.
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	var out StatusResponse
	if c == nil {
		return out, errors.New("mediaapi: client is nil")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return out, errors.New("mediaapi status: job id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, c.root.JoinPath("process", jobID, "status").String(), nil)
	if err != nil {
		return out, fmt.Errorf("mediaapi status: %w", err)
	}
	if err := c.doJSON(req, "mediaapi status", &out); err != nil {
		return out, err
	}
	return out, nil
}

// Download streams the resource at rawURL into w and returns the number of
// bytes written.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if c == nil {
		return 0, errors.New("mediaapi: client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("mediaapi download: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("mediaapi download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, readStatusError("mediaapi download", resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("mediaapi download: copy body: %w", err)
	}
	return n, nil
}

// Ping reports whether the service host answers HTTP requests. Any response
// below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("mediaapi: client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	host := url.URL{Scheme: c.root.Scheme, Host: c.root.Host, Path: "/"}
	req, err := c.newRequest(ctx, http.MethodGet, host.String(), nil)
	if err != nil {
		return fmt.Errorf("mediaapi ping: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mediaapi ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
	if resp.StatusCode >= http.StatusInternalServerError {
		return &StatusError{Operation: "mediaapi ping", StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set(requestIDHeader, id)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readStatusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func readStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{Operation: op, StatusCode: resp.StatusCode, Detail: extractDetail(body)}
}

// extractDetail pulls the human-readable message out of an error body. The
// service reports {"detail": "..."}; validation failures carry a list.
func extractDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return string(trimmed)
	}
	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
		return string(payload.Detail)
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Message
}
