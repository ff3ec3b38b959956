package logic

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/money"
)

// PreferencesInput 偏好的部分更新，nil 表示不修改
type PreferencesInput struct {
	Email           *bool   `json:"email"`
	Push            *bool   `json:"push"`
	Marketing       *bool   `json:"marketing"`
	DisplayCurrency *string `json:"display_currency"`
	Timezone        *string `json:"timezone"`
	Language        *string `json:"language"`
}

// ProfileInput 资料的部分更新
type ProfileInput struct {
	Email       *string           `json:"email"`
	Username    *string           `json:"username"`
	Name        *string           `json:"name"`
	AvatarURL   *string           `json:"avatar_url"`
	Preferences *PreferencesInput `json:"preferences"`
}

// UserLogic 用户资料
type UserLogic struct {
	users      UserStore
	currencies *money.Registry
	now        Clock
}

func NewUserLogic(users UserStore, currencies *money.Registry) *UserLogic {
	return &UserLogic{users: users, currencies: currencies, now: systemClock}
}

func (l *UserLogic) GetProfile(ctx context.Context, id string) (*model.UserModel, error) {
	if id == "" {
		return nil, apperror.Invalid("id", "不能为空")
	}
	return l.users.Get(ctx, id)
}

// UpdateProfile 只能修改自己的资料
func (l *UserLogic) UpdateProfile(ctx context.Context, actorId, userId string, in ProfileInput) (*model.UserModel, error) {
	if actorId == "" || actorId != userId {
		return nil, apperror.Forbidden("只能修改自己的资料")
	}
	u, err := l.users.Get(ctx, userId)
	if err != nil {
		return nil, err
	}

	var v apperror.Collector
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" {
			if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
				v.Add("email", "格式无效")
			}
		}
		u.Email = email
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		v.Check(len(name) <= 64, "username", "长度不能超过64")
		u.Username = name
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if p := in.Preferences; p != nil {
		prefs := &u.Preferences
		if p.Email != nil {
			prefs.EmailNotifications = *p.Email
		}
		if p.Push != nil {
			prefs.PushNotifications = *p.Push
		}
		if p.Marketing != nil {
			prefs.MarketingNotifications = *p.Marketing
		}
		if p.DisplayCurrency != nil {
			code := strings.ToUpper(strings.TrimSpace(*p.DisplayCurrency))
			v.Check(l.currencies.Supports(code), "preferences.display_currency", "不支持的币种 %s", code)
			prefs.DisplayCurrency = code
		}
		if p.Timezone != nil {
			tz := strings.TrimSpace(*p.Timezone)
			if _, err := time.LoadLocation(tz); err != nil || tz == "" {
				v.Add("preferences.timezone", "无效的时区 %s", tz)
			}
			prefs.Timezone = tz
		}
		if p.Language != nil {
			lang := strings.TrimSpace(*p.Language)
			v.Check(lang != "" && len(lang) <= 16, "preferences.language", "无效的语言")
			prefs.Language = lang
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	u.UpdatedAt = l.now()
	if err := l.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
