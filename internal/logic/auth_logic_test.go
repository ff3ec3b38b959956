package logic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/cache"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	walletB = "0x1111111111111111111111111111111111111111"
)

type memoryNonces struct {
	mu     sync.Mutex
	nonces map[string]string
	seq    int
}

func (m *memoryNonces) Issue(_ context.Context, address string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nonces == nil {
		m.nonces = make(map[string]string)
	}
	m.seq++
	nonce := "nonce-" + string(rune('a'+m.seq))
	m.nonces[address] = nonce
	return nonce, testNow.Add(5 * time.Minute), nil
}

func (m *memoryNonces) Consume(_ context.Context, address string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nonce, ok := m.nonces[address]
	if !ok {
		return "", cache.ErrNonceNotFound
	}
	delete(m.nonces, address)
	return nonce, nil
}

// signedBy 签名格式为 "signed:<message>"
type fakeVerifier struct{}

func (fakeVerifier) Verify(address, message, signature string) error {
	if signature != "signed:"+message {
		return errors.New("bad signature")
	}
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(userId, wallet string) (string, time.Time, error) {
	return "token-" + userId, testNow.Add(time.Hour), nil
}

func newAuth(t *testing.T) (*AuthLogic, *fixture) {
	f := newFixture(t)
	auth := NewAuthLogic(f.userRepo, &memoryNonces{}, fakeVerifier{}, fakeTokens{}, f.events)
	auth.now = fixedClock
	return auth, f
}

func signIn(t *testing.T, auth *AuthLogic, address string) *Session {
	t.Helper()
	ctx := context.Background()
	challenge, err := auth.Challenge(ctx, address)
	require.NoError(t, err)
	session, err := auth.Verify(ctx, address, "signed:"+challenge.Message)
	require.NoError(t, err)
	return session
}

func TestAuth_FirstSignInCreatesUser(t *testing.T) {
	auth, f := newAuth(t)

	first := signIn(t, auth, walletA)
	assert.True(t, first.Created)
	assert.Equal(t, "token-"+first.User.Id, first.Token)
	require.NotNil(t, first.User.WalletAddress)
	assert.Equal(t, strings.ToLower(walletA), *first.User.WalletAddress)
	assert.True(t, first.User.Preferences.EmailNotifications)

	again := signIn(t, auth, strings.ToLower(walletA))
	assert.False(t, again.Created)
	assert.Equal(t, first.User.Id, again.User.Id)

	created := f.events.OfType(event.AccountCreated)
	require.Len(t, created, 1)
	assert.Equal(t, first.User.Id, created[0].OwnerId)
	// 欢迎语使用钱包地址
	assert.Equal(t, strings.ToLower(walletA), created[0].ActorName)
}

func TestAuth_NonceIsSingleUse(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	_, err := auth.Verify(ctx, walletA, "anything")
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	challenge, err := auth.Challenge(ctx, walletA)
	require.NoError(t, err)
	assert.Contains(t, challenge.Message, challenge.Nonce)

	_, err = auth.Verify(ctx, walletA, "forged")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	// 失败的尝试同样消耗 nonce
	_, err = auth.Verify(ctx, walletA, "signed:"+challenge.Message)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	_, err = auth.Challenge(ctx, "not-a-wallet")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuth_LinkWallet(t *testing.T) {
	auth, _ := newAuth(t)
	ctx := context.Background()

	alice := signIn(t, auth, walletA)
	bob := signIn(t, auth, walletB)

	challenge, err := auth.Challenge(ctx, walletA)
	require.NoError(t, err)
	_, err = auth.LinkWallet(ctx, bob.User.Id, walletA, "signed:"+challenge.Message)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	// 重新绑定自己的钱包是允许的
	challenge, err = auth.Challenge(ctx, walletA)
	require.NoError(t, err)
	user, err := auth.LinkWallet(ctx, alice.User.Id, walletA, "signed:"+challenge.Message)
	require.NoError(t, err)
	assert.Equal(t, alice.User.Id, user.Id)

	_, err = auth.LinkWallet(ctx, "", walletA, "x")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}
