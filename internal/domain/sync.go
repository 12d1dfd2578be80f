package domain

import (
	"context"
	"strings"
)

// SyncRequest names the dataset to push and the remote project receiving it
type SyncRequest struct {
	Version   string `json:"version"`
	Dataset   string `json:"dataset"`
	ProjectID string `json:"projectId"`
}

// Validate reports which required fields are missing
func (r SyncRequest) Validate() error {
	var missing []string
	if r.Version == "" {
		missing = append(missing, "version")
	}
	if r.Dataset == "" {
		missing = append(missing, "dataset")
	}
	if r.ProjectID == "" {
		missing = append(missing, "projectId")
	}
	if len(missing) > 0 {
		return &RequestError{Missing: missing}
	}
	return nil
}

// RequestError lists the required fields absent from a SyncRequest
type RequestError struct {
	Missing []string
}

func (e *RequestError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

// OutcomeStatus is the terminal state of one image in a run
type OutcomeStatus string

const (
	OutcomeUploaded            OutcomeStatus = "uploaded"
	OutcomeSkippedNoAnnotation OutcomeStatus = "skipped_no_annotation"
	OutcomeFailed              OutcomeStatus = "failed"
)

// SyncOutcome is the result of processing one image key
type SyncOutcome struct {
	Key      ImageKey      `json:"key"`
	FileName string        `json:"fileName"`
	Status   OutcomeStatus `json:"status"`
	// Reason is the error log line for this image, empty when nothing is
	// worth reporting
	Reason string `json:"reason,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
}

// Failed reports whether the outcome counts against the run
func (o SyncOutcome) Failed() bool {
	return o.Status != OutcomeUploaded
}

// SyncReport is the aggregated result of one run
type SyncReport struct {
	Success   bool     `json:"success"`
	Uploaded  int      `json:"uploaded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
	Cancelled bool     `json:"cancelled,omitempty"`
	RunID     string   `json:"runId,omitempty"`
}

// ConvertedAnnotation is the per-image payload in the remote platform's
// center-format text records
type ConvertedAnnotation struct {
	Lines    []string
	LabelMap map[int]string
}

// Payload returns the records as one text document
func (c ConvertedAnnotation) Payload() string {
	return strings.Join(c.Lines, "\n")
}

// Empty reports whether the image carries no boxes
func (c ConvertedAnnotation) Empty() bool {
	return len(c.Lines) == 0
}

// UploadResult is the non-exceptional answer of the remote platform
type UploadResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ImageID string `json:"id,omitempty"`
}

// Uploader sends one image and its annotation to a remote project
type Uploader interface {
	UploadImage(ctx context.Context, projectID string, data []byte, fileName string, annotation ConvertedAnnotation) (UploadResult, error)
}

// Project is a remote annotation project
type Project struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Images  int    `json:"images"`
	Created int64  `json:"created,omitempty"`
	Updated int64  `json:"updated,omitempty"`
}

// ProjectLister lists the projects of the configured workspace
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]Project, error)
}
