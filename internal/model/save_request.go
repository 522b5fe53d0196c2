package model

type SaveRequest struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	ClientRequestID string              `json:"client_request_id"`
	URL             string              `json:"url"`
	Status          SavingRequestStatus `json:"status"`
	Labels          []string            `json:"labels"`
	Source          string              `json:"source"`
	ArchivedAt      *int64              `json:"archived_at,omitempty"`
	Ctime           int64               `json:"ctime"`
	Mtime           int64               `json:"mtime"`
}

// SaveRequestedEvent is published once a save request is persisted. The
// page fetcher consumes it.
type SaveRequestedEvent struct {
	RequestID  string              `json:"request_id"`
	UserID     string              `json:"user_id"`
	URL        string              `json:"url"`
	Labels     []string            `json:"labels"`
	State      SavingRequestStatus `json:"state"`
	ArchivedAt *int64              `json:"archived_at,omitempty"`
	Source     string              `json:"source"`
	Ctime      int64               `json:"ctime"`
}
