package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeUpload is one asset received by the fake service.
type FakeUpload struct {
	FileID      string
	FileName    string
	FileType    string
	ContentType string
	Body        []byte
}

// FakeSubmission is one job request received by the fake service.
type FakeSubmission struct {
	TaskID string
	// Route is the path below /api/process, e.g. "file-1/music" or "ai-edit".
	Route string
	Body  map[string]any
}

// Params returns the nested params object of the submission.
func (s FakeSubmission) Params() map[string]any {
	params, _ := s.Body["params"].(map[string]any)
	return params
}

type fakeTask struct {
	polls int
}

// FakeService is an in-process stand-in for the processing service.
type FakeService struct {
	server *httptest.Server

	mu           sync.Mutex
	nextFile     int
	nextTask     int
	pollsToDone  int
	failReason   string
	omitResult   bool
	resultURL    string
	uploadErr    *fakeError
	submitErr    *fakeError
	finalStatus  string
	uploads      []FakeUpload
	submissions  []FakeSubmission
	statusCalls  int
	requestIDs   []string
	tasks        map[string]*fakeTask
	downloadHits int
}

type fakeError struct {
	code   int
	detail string
}

// FakeOption configures the fake service.
type FakeOption func(*FakeService)

// WithPollsUntilDone sets how many status queries report "processing" before
// the job reaches its terminal state.
func WithPollsUntilDone(n int) FakeOption {
	return func(f *FakeService) { f.pollsToDone = n }
}

// WithJobFailure makes every job end in "failed" with reason.
func WithJobFailure(reason string) FakeOption {
	return func(f *FakeService) { f.failReason = reason }
}

// WithMissingResult makes completed jobs report an empty result object.
func WithMissingResult() FakeOption {
	return func(f *FakeService) { f.omitResult = true }
}

// WithResultURL makes every completed job report url as its artifact.
func WithResultURL(url string) FakeOption {
	return func(f *FakeService) { f.resultURL = url }
}

// WithFinalStatus overrides the raw status string reported on completion.
func WithFinalStatus(status string) FakeOption {
	return func(f *FakeService) { f.finalStatus = status }
}

// WithUploadError makes uploads answer with code and a detail message.
func WithUploadError(code int, detail string) FakeOption {
	return func(f *FakeService) { f.uploadErr = &fakeError{code: code, detail: detail} }
}

// WithSubmitError makes job submissions answer with code and a detail message.
func WithSubmitError(code int, detail string) FakeOption {
	return func(f *FakeService) { f.submitErr = &fakeError{code: code, detail: detail} }
}

// NewFakeService starts a fake processing service and registers cleanup.
func NewFakeService(t testing.TB, opts ...FakeOption) *FakeService {
	t.Helper()

	f := &FakeService{pollsToDone: 1, finalStatus: "completed", tasks: make(map[string]*fakeTask)}
	for _, opt := range opts {
		opt(f)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"service": "fake"})
	})
	mux.HandleFunc("POST /api/files/upload", f.handleUpload)
	mux.HandleFunc("GET /api/files/download/{id}/{name}", f.handleDownload)
	mux.HandleFunc("POST /api/process/ai-edit", f.handleSubmit)
	mux.HandleFunc("POST /api/process/{file_id}/{operation}", f.handleSubmit)
	mux.HandleFunc("GET /api/process/{task_id}/status", f.handleStatus)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the service base URL.
func (f *FakeService) URL() string {
	return f.server.URL
}

// APIRoot returns the absolute API root.
func (f *FakeService) APIRoot() string {
	return f.server.URL + "/api"
}

// Uploads returns every upload received so far.
func (f *FakeService) Uploads() []FakeUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeUpload(nil), f.uploads...)
}

// Submissions returns every job request received so far.
func (f *FakeService) Submissions() []FakeSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeSubmission(nil), f.submissions...)
}

// StatusCalls returns the number of status queries answered.
func (f *FakeService) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// Downloads returns the number of artifact downloads served.
func (f *FakeService) Downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadHits
}

// RequestIDs returns the X-Request-ID headers seen, in order.
func (f *FakeService) RequestIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...)
}

// TotalRequests counts uploads, submissions and status queries.
func (f *FakeService) TotalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.submissions) + f.statusCalls
}

// ArtifactPath is the download reference the fake reports for taskID.
func ArtifactPath(taskID string) string {
	return fmt.Sprintf("/api/files/download/%s/output_%s.mp4", taskID, taskID)
}

func (f *FakeService) noteRequestID(r *http.Request) {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		f.requestIDs = append(f.requestIDs, id)
	}
}

func (f *FakeService) handleUpload(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.noteRequestID(r)
	uploadErr := f.uploadErr
	f.mu.Unlock()
	if uploadErr != nil {
		writeJSON(w, uploadErr.code, map[string]string{"detail": uploadErr.detail})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "file is required"})
		return
	}
	defer file.Close()
	body, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	f.mu.Lock()
	f.nextFile++
	id := fmt.Sprintf("file-%d", f.nextFile)
	upload := FakeUpload{
		FileID:      id,
		FileName:    header.Filename,
		FileType:    r.FormValue("file_type"),
		ContentType: header.Header.Get("Content-Type"),
		Body:        body,
	}
	f.uploads = append(f.uploads, upload)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"file_id":      id,
		"filename":     upload.FileName,
		"download_url": fmt.Sprintf("/api/files/download/%s/%s", id, upload.FileName),
		"file_type":    upload.FileType,
		"status":       "uploaded",
	})
}

func (f *FakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "body is not valid JSON"}},
		})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteRequestID(r)
	if f.submitErr != nil {
		writeJSON(w, f.submitErr.code, map[string]string{"detail": f.submitErr.detail})
		return
	}
	f.nextTask++
	taskID := fmt.Sprintf("task-%d", f.nextTask)
	f.tasks[taskID] = &fakeTask{}
	f.submissions = append(f.submissions, FakeSubmission{
		TaskID: taskID,
		Route:  strings.TrimPrefix(r.URL.Path, "/api/process/"),
		Body:   body,
	})
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID, "status": "processing_started"})
}

func (f *FakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("task_id")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteRequestID(r)
	f.statusCalls++
	task, ok := f.tasks[taskID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Task not found"})
		return
	}
	task.polls++
	if task.polls < f.pollsToDone {
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": "processing"})
		return
	}
	if f.failReason != "" {
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": "failed", "error": f.failReason})
		return
	}
	resp := map[string]any{"task_id": taskID, "status": f.finalStatus}
	switch {
	case f.omitResult:
		resp["result"] = map[string]string{}
	default:
		ref := f.resultURL
		if ref == "" {
			ref = ArtifactPath(taskID)
		}
		resp["result"] = map[string]string{
			"download_url":    ref,
			"output_filename": fmt.Sprintf("output_%s.mp4", taskID),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeService) handleDownload(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.downloadHits++
	f.mu.Unlock()
	w.Header().Set("Content-Type", "video/mp4")
	_, _ = io.WriteString(w, "artifact:"+r.PathValue("id")+"/"+r.PathValue("name"))
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
