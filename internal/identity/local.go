package identity

import (
	"CloudHunter/internal/repo"
	"CloudHunter/model"
	"CloudHunter/utils"
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	keyRevoked = "session:revoked:"
	keyReset   = "reset:"
)

// KV holds revocations and reset codes.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// Mailer delivers password reset links.
type Mailer interface {
	SendResetMail(to, link string) error
}

type LocalOptions struct {
	Secret      string
	TokenTTL    time.Duration
	ResetTTL    time.Duration
	ResetURL    string // link base, the code is appended as ?code=
	SignInRate  float64
	SignInBurst int
}

// Local is a Provider backed by the account table.
type Local struct {
	db     *gorm.DB
	kv     KV
	mailer Mailer
	opts   LocalOptions

	limMu     sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int

	now func() time.Time
}

func NewLocal(db *gorm.DB, kv KV, mailer Mailer, opts LocalOptions) *Local {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 10 * time.Minute
	}
	if opts.SignInBurst <= 0 {
		opts.SignInBurst = 5
	}
	return &Local{
		db:       db,
		kv:       kv,
		mailer:   mailer,
		opts:     opts,
		limiters: make(map[string]*limiterEntry),
		subs:     make(map[int]func(Event)),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *Local) SignUp(ctx context.Context, email, password, displayName string) (*Identity, string, error) {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return nil, "", newError(CodeInvalidEmail, nil)
	}
	if len(password) < MinPasswordLength {
		return nil, "", newError(CodeWeakPassword, nil)
	}

	var count int64
	if err := l.db.WithContext(ctx).Model(&model.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", newError(CodeEmailAlreadyInUse, nil)
	}

	hash, err := utils.GetPwd(password)
	if err != nil {
		return nil, "", err
	}
	account := &model.Account{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
	}
	if err := l.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", newError(CodeEmailAlreadyInUse, err)
		}
		return nil, "", err
	}

	id, token, err := l.issue(account)
	if err != nil {
		return nil, "", err
	}
	l.emit(EventSignedUp, *id)
	return id, token, nil
}

func (l *Local) SignIn(ctx context.Context, email, password string) (*Identity, string, error) {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return nil, "", newError(CodeInvalidEmail, nil)
	}
	if !l.limiter(email).Allow() {
		return nil, "", newError(CodeTooManyRequests, nil)
	}

	account, err := l.findByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if account.Disabled {
		return nil, "", newError(CodeUserDisabled, nil)
	}
	if !utils.CheckPwd(password, account.PasswordHash) {
		return nil, "", newError(CodeWrongPassword, nil)
	}

	id, token, err := l.issue(account)
	if err != nil {
		return nil, "", err
	}
	l.emit(EventSignedIn, *id)
	return id, token, nil
}

func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := utils.VerifyToken(l.opts.Secret, token)
	if err != nil {
		return newError(CodeInvalidUserToken, err)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl > 0 && claims.ID != "" {
		if err := l.kv.Set(ctx, keyRevoked+claims.ID, "1", ttl); err != nil {
			return newError(CodeNetworkRequestFailed, err)
		}
	}
	l.emit(EventSignedOut, Identity{UserID: claims.UserId, Email: claims.Email, DisplayName: claims.DisplayName})
	return nil
}

func (l *Local) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := utils.VerifyToken(l.opts.Secret, token)
	if err != nil {
		return nil, newError(CodeInvalidUserToken, err)
	}
	if claims.ID != "" {
		_, err := l.kv.Get(ctx, keyRevoked+claims.ID)
		if err == nil {
			return nil, newError(CodeInvalidUserToken, errors.New("token revoked"))
		}
		if !errors.Is(err, repo.ErrKeyNotFound) {
			return nil, newError(CodeNetworkRequestFailed, err)
		}
	}
	return &Identity{UserID: claims.UserId, Email: claims.Email, DisplayName: claims.DisplayName}, nil
}

func (l *Local) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return newError(CodeInvalidEmail, nil)
	}
	account, err := l.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if l.mailer == nil {
		return newError(CodeOperationNotAllowed, errors.New("mail delivery not configured"))
	}

	code := utils.GetToken()
	if err := l.kv.Set(ctx, keyReset+code, strconv.FormatUint(account.ID, 10), l.opts.ResetTTL); err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	link := l.opts.ResetURL + "?code=" + url.QueryEscape(code)
	if err := l.mailer.SendResetMail(account.Email, link); err != nil {
		_ = l.kv.Del(ctx, keyReset+code)
		return newError(CodeNetworkRequestFailed, err)
	}
	log.Printf("identity: reset link sent to account %d", account.ID)
	return nil
}

func (l *Local) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return newError(CodeInvalidActionCode, nil)
	}
	raw, err := l.kv.Get(ctx, keyReset+code)
	if errors.Is(err, repo.ErrKeyNotFound) {
		return newError(CodeInvalidActionCode, nil)
	}
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	if len(newPassword) < MinPasswordLength {
		return newError(CodeWeakPassword, nil)
	}
	accountID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return newError(CodeInvalidActionCode, err)
	}

	hash, err := utils.GetPwd(newPassword)
	if err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", accountID).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(CodeUserNotFound, nil)
	}
	// 重置码一次性
	if err := l.kv.Del(ctx, keyReset+code); err != nil {
		log.Printf("identity: drop reset code failed: %v", err)
	}
	return nil
}

func (l *Local) Subscribe(fn func(Event)) func() {
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.subMu.Unlock()
	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

// SetDisabled toggles an account's disabled flag.
func (l *Local) SetDisabled(ctx context.Context, email string, disabled bool) error {
	res := l.db.WithContext(ctx).Model(&model.Account{}).
		Where("email = ?", normalizeEmail(email)).
		Update("disabled", disabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(CodeUserNotFound, nil)
	}
	return nil
}

func (l *Local) emit(kind EventKind, id Identity) {
	ev := Event{Kind: kind, Identity: id, At: l.now()}
	l.subMu.RLock()
	fns := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (l *Local) issue(account *model.Account) (*Identity, string, error) {
	token, _, err := utils.GenerateToken(l.opts.Secret, l.opts.TokenTTL, account.ID, account.Email, account.DisplayName)
	if err != nil {
		return nil, "", err
	}
	return &Identity{UserID: account.ID, Email: account.Email, DisplayName: account.DisplayName}, token, nil
}

func (l *Local) findByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := l.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(CodeUserNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &account, nil
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterIdle is how long an entry must sit unused before it is dropped.
// It is never shorter than a full bucket refill, so a dropped limiter is
// indistinguishable from a fresh one.
func (l *Local) limiterIdle() time.Duration {
	idle := time.Minute
	if l.opts.SignInRate > 0 {
		refill := time.Duration(float64(l.opts.SignInBurst) / l.opts.SignInRate * float64(time.Second))
		if refill > idle {
			idle = refill
		}
	}
	return idle
}

func (l *Local) limiter(email string) *rate.Limiter {
	l.limMu.Lock()
	defer l.limMu.Unlock()

	now := l.now()
	idle := l.limiterIdle()
	if now.Sub(l.lastSweep) >= idle {
		for key, entry := range l.limiters {
			if now.Sub(entry.seen) >= idle {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[email]
	if !ok {
		limit := rate.Limit(l.opts.SignInRate)
		if l.opts.SignInRate <= 0 {
			limit = rate.Inf
		}
		entry = &limiterEntry{lim: rate.NewLimiter(limit, l.opts.SignInBurst)}
		l.limiters[email] = entry
	}
	entry.seen = now
	return entry.lim
}
