package jobModel

import (
	"context"
	"time"

	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	MessageInit     InternalStatus = "Init"
	ClassifyCall    InternalStatus = "Classify"
	CacheCall       InternalStatus = "CacheCall"
	EmbeddingCall   InternalStatus = "EmbeddingAPI"
	VectorDBCall    InternalStatus = "VectorDB"
	AssembleContext InternalStatus = "AssembleContext"
	LLMCall         InternalStatus = "LLM"
	ManifestEdit    InternalStatus = "ManifestEdit"

	IndexInit       InternalStatus = "IndexInit"
	IndexProcessing InternalStatus = "IndexProcessing"
	Error           InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeMessage JobType = "Message"
	JobTypeIndex   JobType = "Index"
)

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Message     string                   `json:"message,omitempty"`
	Tag         string                   `json:"tag,omitempty"`
	MessageKind commonModels.MessageType `json:"message_kind,omitempty"`
	Answer      string                   `json:"answer,omitempty"`
	Sources     []string                 `json:"sources,omitempty"`

	//bulk index jobs
	IndexRoot string `json:"index_root,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// FeedbackLog records every feedback directive applied to the manifest,
// newest last. It is an audit trail, not conversational memory.
type FeedbackLog interface {
	AppendFeedback(ctx context.Context, directive string) error
	RecentFeedback(ctx context.Context, limit int) ([]string, error)
}
