package model

type Label struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Ctime  int64  `json:"ctime"`
	Mtime  int64  `json:"mtime"`
}
