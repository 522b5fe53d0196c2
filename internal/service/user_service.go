package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/readlater/internal/model"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
	"github.com/xxxsen/readlater/internal/pkg/jwt"
	"github.com/xxxsen/readlater/internal/pkg/timeutil"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type UserService struct {
	users     UserStore
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewUserService(users UserStore, secret []byte, ttl time.Duration) *UserService {
	return &UserService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

// Create adds an account and returns a bearer token for it.
func (s *UserService) Create(ctx context.Context, username, email string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, "/ ") {
		return nil, "", appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:       newID(),
		Username: username,
		Email:    strings.TrimSpace(email),
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) IssueToken(user *model.User) (string, error) {
	return jwt.GenerateToken(user.ID, user.Username, s.jwtSecret, s.jwtTTL)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, strings.TrimSpace(username))
}
