package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rodrigocampos/knowledge-base-rag/internal/adapter"
	"github.com/rodrigocampos/knowledge-base-rag/internal/adapter/utils"
	"github.com/rodrigocampos/knowledge-base-rag/internal/api"
	"github.com/rodrigocampos/knowledge-base-rag/internal/config"
	"github.com/rodrigocampos/knowledge-base-rag/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id         string
	message    string
	tag        string
	traceId    string
	isIndexJob bool
	indexRoot  string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	return
}

// MessageHandler accepts one user turn, queues it as a background job and
// returns the job id for status polling. The turn may be a question or a
// feedback directive; classification happens inside the job.
func MessageHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.MessageRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Message handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateMessageRequest(requestData) {

			logRH.Warn("Bad Message Request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}

		newJob := newJobData{
			id:      utils.GetNewUUID(),
			message: requestData.Message,
			tag:     requestData.Tag,
			traceId: request.Context().Value(config.TRACE_ID_KEY).(string),
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// GetFeedbackHandler lists the feedback directives that have been applied to
// the manifest, oldest first. An optional limit query parameter bounds the
// read; it defaults to the configured page size and is capped.
func GetFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		limit := config.FeedbackReadLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				logRH.Warn("Bad Feedback Request: ", "limit:", raw)
				WriteErrorResponse(w, http.StatusBadRequest, "", "limit must be a positive integer")
				return
			}
			limit = parsed
		}
		if limit > config.FeedbackReadLimitMax {
			limit = config.FeedbackReadLimitMax
		}

		directives, err := GetRecentFeedback(r.Context().Value(config.TRACE_ID_KEY).(string), limit)
		if err != nil {
			logRH.Error("Couldn't read the feedback log :", "error:", err)
			WriteErrorResponse(w, http.StatusInternalServerError, "", "feedback log unavailable")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToFeedbackResponse(directives))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// GetStatusHandler retrieves the current status of a job by its id.
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// PostIndexHandler queues a bulk-index job over the documents tree. Every
// immediate subdirectory of the root becomes a searchable tag.
func PostIndexHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.IndexRequest
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				logRH.Error("Couldn't close the Index handler reader :", err)
			}
		}(r.Body)
		// an empty body means "index the configured documents root"
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil && err != io.EOF {
			logRH.Warn("Bad Index Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}

		root, errString := resolveIndexRoot(requestData.Root)
		if errString != "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", errString)
			return
		}

		newJob := newJobData{
			id:         utils.GetNewUUID(),
			traceId:    r.Context().Value(config.TRACE_ID_KEY).(string),
			isIndexJob: true,
			indexRoot:  root,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}
