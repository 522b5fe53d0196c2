package usercache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/model"
)

type UserGetter interface {
	GetByID(ctx context.Context, userID string) (*model.User, error)
}

// WrapLruCache puts an expirable lru in front of next. It returns next
// unchanged when size or ttl disable the cache.
func WrapLruCache(next UserGetter, size int, ttl time.Duration) UserGetter {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruUsers{
		next:  next,
		cache: expirable.NewLRU[string, model.User](size, nil, ttl),
	}
}

type lruUsers struct {
	next  UserGetter
	cache *expirable.LRU[string, model.User]
}

func (l *lruUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if cached, ok := l.cache.Get(userID); ok {
		logutil.GetLogger(ctx).Debug("user cache hit", zap.String("user_id", userID))
		user := cached
		return &user, nil
	}
	user, err := l.next.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.cache.Add(userID, *user)
	return user, nil
}
