package slack

import (
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

type userAPI interface {
	GetUserInfo(user string) (*slack.User, error)
}

// UserCache memoizes user id → display name lookups for one run. A failed
// lookup is cached as the raw id so the API is asked at most once per user.
type UserCache struct {
	api    userAPI
	names  map[string]string
	logger *zap.Logger
}

func NewUserCache(a userAPI, logger *zap.Logger) *UserCache {
	return &UserCache{api: a, names: make(map[string]string), logger: logger}
}

func (uc *UserCache) Resolve(id string) string {
	if name, ok := uc.names[id]; ok {
		return name
	}
	user, err := uc.api.GetUserInfo(id)
	if err != nil {
		uc.logger.Warn("users.info failed, using raw id", zap.String("user_id", id), zap.Error(err))
		uc.names[id] = id
		return id
	}
	name := user.Profile.DisplayName
	if name == "" {
		name = user.Profile.RealName
	}
	if name == "" {
		name = id
	}
	uc.names[id] = name
	return name
}
