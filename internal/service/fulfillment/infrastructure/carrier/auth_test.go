package carrier

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

type memoryStore struct {
	mu    sync.Mutex
	token string
	exp   time.Time
	saves int
}

func (m *memoryStore) Load(context.Context) (string, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.exp, m.token != "", nil
}

func (m *memoryStore) Save(_ context.Context, token string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.exp = token, exp
	m.saves++
	return nil
}

func TestTokenSource_SingleFlight(t *testing.T) {
	var calls atomic.Int32
	login := func(ctx context.Context, email, password string) (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "tok-1", nil
	}
	ts := NewTokenSource(AuthConfig{Email: "e", Password: "p", TTL: time.Hour}, login, nil)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "tok-1", tok)
	}
}

func TestTokenSource_RefreshBuffer(t *testing.T) {
	var calls atomic.Int32
	login := func(context.Context, string, string) (string, error) {
		n := calls.Add(1)
		return "tok-" + string(rune('0'+n)), nil
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := NewTokenSource(AuthConfig{Email: "e", Password: "p", TTL: 10 * time.Hour, RefreshBuffer: time.Hour}, login, nil)
	ts.now = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	now = now.Add(8 * time.Hour)
	tok, _ = ts.Token(context.Background())
	assert.Equal(t, "tok-1", tok, "still outside the refresh buffer")

	now = now.Add(90 * time.Minute)
	tok, _ = ts.Token(context.Background())
	assert.Equal(t, "tok-2", tok, "inside the refresh buffer a new token is fetched")
}

func TestTokenSource_SharedStore(t *testing.T) {
	store := &memoryStore{token: "shared", exp: time.Now().Add(5 * time.Hour)}
	login := func(context.Context, string, string) (string, error) {
		return "", errors.New("login must not be called")
	}
	ts := NewTokenSource(AuthConfig{Email: "e", Password: "p", RefreshBuffer: time.Hour}, login, store)

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shared", tok)

	// 共享 token 临近过期时重新登录并回写
	store.exp = time.Now().Add(30 * time.Minute)
	ts.Invalidate("shared")
	ts.login = func(context.Context, string, string) (string, error) { return "fresh", nil }
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	assert.Equal(t, "fresh", store.token)
	assert.Equal(t, 1, store.saves)
}

func TestTokenSource_LoginFailureIsAuthError(t *testing.T) {
	ts := NewTokenSource(AuthConfig{Email: "e", Password: "p"}, func(context.Context, string, string) (string, error) {
		return "", &APIError{StatusCode: 401, Message: "Invalid credentials"}
	}, nil)
	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))

	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}
