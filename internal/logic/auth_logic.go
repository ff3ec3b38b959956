package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/cache"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/wallet"
	"github.com/google/uuid"
)

// NonceStore 登录挑战存储，nonce 不存在时返回 cache.ErrNonceNotFound
type NonceStore interface {
	Issue(ctx context.Context, address string) (string, time.Time, error)
	Consume(ctx context.Context, address string) (string, error)
}

// SignatureVerifier 钱包签名校验
type SignatureVerifier interface {
	Verify(address, message, signature string) error
}

// TokenIssuer 会话令牌签发
type TokenIssuer interface {
	Issue(userId, walletAddress string) (string, time.Time, error)
}

// Challenge 待签名的登录挑战
type Challenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session 登录结果
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *model.UserModel `json:"user"`
	Created   bool             `json:"created"`
}

// AuthLogic 钱包登录与绑定
type AuthLogic struct {
	users    UserStore
	nonces   NonceStore
	verifier SignatureVerifier
	tokens   TokenIssuer
	events   event.Publisher
	now      Clock
}

func NewAuthLogic(users UserStore, nonces NonceStore, verifier SignatureVerifier, tokens TokenIssuer, events event.Publisher) *AuthLogic {
	return &AuthLogic{
		users:    users,
		nonces:   nonces,
		verifier: verifier,
		tokens:   tokens,
		events:   events,
		now:      systemClock,
	}
}

// SignInMessage 钱包需要签名的原文
func SignInMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to TitaFlow\n\nWallet: %s\nNonce: %s", address, nonce)
}

// Challenge 为地址签发一次性 nonce
func (l *AuthLogic) Challenge(ctx context.Context, address string) (*Challenge, error) {
	addr, _, err := wallet.Normalize(address)
	if err != nil {
		return nil, apperror.Invalid("address", "无效的钱包地址")
	}
	nonce, expires, err := l.nonces.Issue(ctx, addr)
	if err != nil {
		logger.Error("Failed to issue nonce for %s: %v", addr, err)
		return nil, apperror.Dependency(err, "生成登录挑战失败")
	}
	return &Challenge{Address: addr, Nonce: nonce, Message: SignInMessage(addr, nonce), ExpiresAt: expires}, nil
}

// checkSignature 消费 nonce 并校验签名，nonce 只能使用一次
func (l *AuthLogic) checkSignature(ctx context.Context, address, signature string) (string, error) {
	addr, _, err := wallet.Normalize(address)
	if err != nil {
		return "", apperror.Invalid("address", "无效的钱包地址")
	}
	if signature == "" {
		return "", apperror.Invalid("signature", "不能为空")
	}
	nonce, err := l.nonces.Consume(ctx, addr)
	if err != nil {
		if errors.Is(err, cache.ErrNonceNotFound) {
			return "", apperror.InvalidState("登录挑战不存在或已过期")
		}
		logger.Error("Failed to consume nonce for %s: %v", addr, err)
		return "", apperror.Dependency(err, "读取登录挑战失败")
	}
	if err := l.verifier.Verify(addr, SignInMessage(addr, nonce), signature); err != nil {
		return "", apperror.Forbidden("签名校验失败")
	}
	return addr, nil
}

// Verify 校验签名并登录，钱包首次登录时创建用户
func (l *AuthLogic) Verify(ctx context.Context, address, signature string) (*Session, error) {
	addr, err := l.checkSignature(ctx, address, signature)
	if err != nil {
		return nil, err
	}

	created := false
	user, err := l.users.GetByWallet(ctx, addr)
	if apperror.Is(err, apperror.KindNotFound) {
		now := l.now()
		user = &model.UserModel{
			Id:             uuid.NewString(),
			CreatedAt:      now,
			UpdatedAt:      now,
			WalletAddress:  &addr,
			WalletLinkedAt: &now,
			Preferences:    model.DefaultPreferences(),
		}
		if err = l.users.Create(ctx, user); err != nil {
			return nil, err
		}
		created = true
		logger.Info("User %s created for wallet %s", user.Id, addr)
		// 新用户尚无用户名，欢迎语使用钱包地址
		l.events.Publish(event.Event{
			Type:       event.AccountCreated,
			OccurredAt: now,
			OwnerId:    user.Id,
			ActorName:  displayName(user),
		})
	} else if err != nil {
		return nil, err
	}

	token, expires, err := l.tokens.Issue(user.Id, addr)
	if err != nil {
		return nil, apperror.Dependency(err, "签发令牌失败")
	}
	return &Session{Token: token, ExpiresAt: expires, User: user, Created: created}, nil
}

// LinkWallet 为已登录用户绑定钱包
func (l *AuthLogic) LinkWallet(ctx context.Context, actorId, address, signature string) (*model.UserModel, error) {
	if actorId == "" {
		return nil, apperror.Forbidden("需要登录")
	}
	addr, err := l.checkSignature(ctx, address, signature)
	if err != nil {
		return nil, err
	}

	owner, err := l.users.GetByWallet(ctx, addr)
	switch {
	case err == nil && owner.Id != actorId:
		return nil, apperror.InvalidState("钱包已绑定到其他用户")
	case err != nil && !apperror.Is(err, apperror.KindNotFound):
		return nil, err
	}

	if err := l.users.LinkWallet(ctx, actorId, addr, l.now()); err != nil {
		return nil, err
	}
	return l.users.Get(ctx, actorId)
}

// displayName 用户名、姓名、钱包地址依次取第一个非空值
func displayName(u *model.UserModel) string {
	switch {
	case u.Username != "":
		return u.Username
	case u.Name != "":
		return u.Name
	case u.WalletAddress != nil:
		return *u.WalletAddress
	}
	return ""
}
