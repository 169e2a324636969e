package carrier

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// TokenStore 多实例共享 token，可选
type TokenStore interface {
	Load(ctx context.Context) (token string, expiresAt time.Time, ok bool, err error)
	Save(ctx context.Context, token string, expiresAt time.Time) error
}

// LoginFunc 用账号密码换取 token
type LoginFunc func(ctx context.Context, email, password string) (string, error)

type AuthConfig struct {
	Email         string
	Password      string
	Token         string // 预先下发的 token
	TTL           time.Duration
	RefreshBuffer time.Duration
	Timeout       time.Duration // 单次登录请求的超时
}

// TokenSource 进程内 token 缓存，刷新通过 singleflight 串行化
type TokenSource struct {
	cfg   AuthConfig
	login LoginFunc
	store TokenStore
	now   func() time.Time
	group singleflight.Group

	mu               sync.Mutex
	token            string
	expiresAt        time.Time
	provisionedTaken bool
}

func NewTokenSource(cfg AuthConfig, login LoginFunc, store TokenStore) *TokenSource {
	if cfg.TTL <= 0 {
		cfg.TTL = 240 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &TokenSource{cfg: cfg, login: login, store: store, now: time.Now}
}

// Token 缓存的 token 距过期还有 RefreshBuffer 以上时直接返回
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(); ok {
		return tok, nil
	}
	v, err, shared := s.group.Do("token", func() (any, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		// 发起者取消不应该影响等待同一次刷新的其它调用方
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()
		return s.refresh(refreshCtx)
	})
	if err != nil {
		return "", err
	}
	if shared {
		logger.Ctx(ctx).Debug().Msg("carrier token refresh shared")
	}
	return v.(string), nil
}

// Invalidate 承运商返回 401 时调用，只清除仍是该值的缓存
func (s *TokenSource) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
		s.expiresAt = time.Time{}
	}
}

func (s *TokenSource) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usable(s.token, s.expiresAt) {
		return s.token, true
	}
	return "", false
}

func (s *TokenSource) usable(token string, expiresAt time.Time) bool {
	return token != "" && s.now().Before(expiresAt.Add(-s.cfg.RefreshBuffer))
}

func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	const op = "carrier.Token"
	log := logger.Ctx(ctx)

	if s.store != nil {
		tok, exp, ok, err := s.store.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load shared carrier token failed")
		} else if ok && s.usable(tok, exp) {
			s.set(tok, exp)
			return tok, nil
		}
	}

	s.mu.Lock()
	adoptProvisioned := !s.provisionedTaken && s.cfg.Token != ""
	s.provisionedTaken = true
	s.mu.Unlock()

	var token string
	switch {
	case adoptProvisioned:
		token = s.cfg.Token
		log.Info().Msg("using pre-provisioned carrier token")
	case s.cfg.Email == "" || s.cfg.Password == "":
		return "", domain.E(domain.KindAuth, op, "carrier credentials are not configured")
	default:
		tok, err := s.login(ctx, s.cfg.Email, s.cfg.Password)
		if err != nil {
			return "", domain.Wrap(domain.KindAuth, op, err)
		}
		if tok == "" {
			return "", domain.E(domain.KindAuth, op, "carrier login returned an empty token")
		}
		token = tok
		log.Info().Msg("carrier token refreshed")
	}

	expiresAt := s.now().Add(s.cfg.TTL)
	s.set(token, expiresAt)
	if s.store != nil {
		if err := s.store.Save(ctx, token, expiresAt); err != nil {
			log.Warn().Err(err).Msg("save shared carrier token failed")
		}
	}
	return token, nil
}

func (s *TokenSource) set(token string, expiresAt time.Time) {
	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()
}
