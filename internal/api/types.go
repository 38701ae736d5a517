package api

// QueueEntry is the serializable projection of a queued entry exchanged
// between the daemon and its clients. Attachment bytes never cross this
// boundary; only the count does.
type QueueEntry struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	RetryCount   int               `json:"retryCount"`
	Attachments  int               `json:"attachments"`
	Fields       map[string]string `json:"fields,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	CreatedAt    string            `json:"createdAt,omitempty"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
}

// QueueStats carries per-status counts for the queue.
type QueueStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
}

// DaemonStatus summarizes a running daemon for the status command.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	Online       bool       `json:"online"`
	PID          int        `json:"pid"`
	Endpoint     string     `json:"endpoint"`
	DatabasePath string     `json:"databasePath"`
	Queue        QueueStats `json:"queue"`
}

// QueueHealth reports whether the queue needs operator attention.
type QueueHealth struct {
	Healthy bool   `json:"healthy"`
	Pending int64  `json:"pending"`
	Sending int64  `json:"sending"`
	Errored int64  `json:"errored"`
	Detail  string `json:"detail,omitempty"`
}

const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"
