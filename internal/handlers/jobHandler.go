package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rodrigocampos/knowledge-base-rag/internal/api"
	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/internal/domain/jobModel"
	"github.com/rodrigocampos/knowledge-base-rag/internal/job"
	"github.com/rodrigocampos/knowledge-base-rag/internal/metrics"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job")
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func GetRecentFeedback(traceId string, limit int) ([]string, error) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance == nil || handlerInstance.service.FeedbackLog == nil {
		return []string{}, nil
	}
	return handlerInstance.service.FeedbackLog.RecentFeedback(ctxC, limit)
}

func ValidateMessageRequest(req api.MessageRequest) bool {
	if handlerInstance == nil {
		return false
	}
	return req.Message != ""
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isIndexJob {
		_job.CurrentStep = jobModel.IndexInit
		_job.JobType = jobModel.JobTypeIndex
		_job.JobPayload.IndexRoot = newJob.indexRoot

	} else {
		_job.JobType = jobModel.JobTypeMessage
		_job.CurrentStep = jobModel.MessageInit
		_job.JobPayload.Message = newJob.message
		_job.JobPayload.Tag = newJob.tag
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//a new worker is started every few requests, and always for an index
	//job since indexing walks whole directory trees and would otherwise
	//starve message jobs behind it
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIndex {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
