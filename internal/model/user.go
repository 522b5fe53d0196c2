package model

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
