package ipc

import "satchel/internal/api"

// QueueEntry mirrors the daemon's queue DTO for IPC callers.
type QueueEntry = api.QueueEntry

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/queue status information.
type StatusResponse struct {
	Running      bool             `json:"running"`
	Online       bool             `json:"online"`
	PID          int              `json:"pid"`
	Endpoint     string           `json:"endpoint"`
	QueueStats   map[string]int64 `json:"queue_stats"`
	QueueDBPath  string           `json:"queue_db_path"`
	LockPath     string           `json:"lock_path"`
}

// StartRequest resumes background processing.
type StartRequest struct{}

// StartResponse indicates whether processing was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest halts background processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// AddAttachment carries one attachment's metadata and raw bytes.
type AddAttachment struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Bytes    []byte `json:"bytes"`
}

// AddRequest enqueues a new entry.
type AddRequest struct {
	Fields      map[string]string `json:"fields"`
	Attachments []AddAttachment   `json:"attachments"`
}

// AddResponse returns the queued entry.
type AddResponse struct {
	Entry QueueEntry `json:"entry"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries in creation order.
type QueueListResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// QueueDescribeRequest fetches a single queue entry by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Entry QueueEntry `json:"entry"`
}

// QueueDeleteRequest removes specific entries by id.
type QueueDeleteRequest struct {
	IDs []string `json:"ids"`
}

// QueueDeleteResponse reports number of removed entries.
type QueueDeleteResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRetryRequest retries errored entries. Empty list means all errored.
type QueueRetryRequest struct {
	IDs []string `json:"ids"`
}

// QueueRetryResponse reports number of entries reset to pending.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// FlushRequest asks for an immediate processing pass.
type FlushRequest struct{}

// FlushResponse acknowledges the flush request.
type FlushResponse struct {
	Requested bool `json:"requested"`
}

// QueueStatsRequest fetches per-status counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports per-status counts.
type QueueStatsResponse struct {
	Stats api.QueueStats `json:"stats"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Health api.QueueHealth `json:"health"`
}

// SweepRequest removes orphaned attachment blobs.
type SweepRequest struct{}

// SweepResponse reports number of removed blobs.
type SweepResponse struct {
	Removed int64 `json:"removed"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
