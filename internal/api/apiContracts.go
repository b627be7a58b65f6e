package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Message string   `json:"message"`
	Kind    string   `json:"kind,omitempty"`
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

// FeedbackLogResponse lists the manifest feedback directives that were
// applied, oldest first.
type FeedbackLogResponse struct {
	Feedback []string `json:"feedback"`
}

// requests---------------------

type MessageRequest struct {
	Message string `json:"message" validate:"required" `
	Tag     string `json:"tag,omitempty" `
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IndexRequest struct {
	Root string `json:"root,omitempty"`
}
