package model

const (
	ImportJobStatusPending = "pending"
	ImportJobStatusRunning = "running"
	ImportJobStatusDone    = "done"
	ImportJobStatusFailed  = "failed"
)

type ImportJob struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Source   string `json:"source"`
	Status   string `json:"status"`
	FileKey  string `json:"-"`
	Imported int    `json:"imported"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
