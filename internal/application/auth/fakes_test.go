package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

/*
Fakes for ports
*/

type fakeUsers struct {
	mu sync.Mutex

	byID    map[string]domain.User
	byEmail map[string]domain.User

	createErr     error
	getByEmailErr error
	getByIDErr    error
	updatePwdErr  error
	bumpErr       error

	updatedPwd []struct{ id, hash string }
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    map[string]domain.User{},
		byEmail: map[string]domain.User{},
	}
}

func (f *fakeUsers) seed(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUsers) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	if _, dup := f.byEmail[u.Email]; dup {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	for _, other := range f.byID {
		if other.Username == u.Username {
			return domain.User{}, domain.ErrUsernameAlreadyExists()
		}
	}
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUsers) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{userID, newHash})
	return nil
}

func (f *fakeUsers) BumpTokenVersion(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bumpErr != nil {
		return 0, f.bumpErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return 0, domain.ErrUserNotFound()
	}
	u.TokenVersion++
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return u.TokenVersion, nil
}

type fakeHasher struct {
	mu           sync.Mutex
	compareCalls int

	hashFn    func(pw string) (string, error)
	compareFn func(hash, pw string) error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	h.mu.Lock()
	h.compareCalls++
	h.mu.Unlock()

	if h.compareFn != nil {
		return h.compareFn(hash, password)
	}
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

type fakeSigner struct {
	signFn func(userID, role string, ver int, ttl time.Duration) (string, error)
}

func (s *fakeSigner) SignAccessToken(userID, role string, ver int, ttl time.Duration) (string, error) {
	if s.signFn != nil {
		return s.signFn(userID, role, ver, ttl)
	}
	return fmt.Sprintf("jwt(%s,%s,v%d)", userID, role, ver), nil
}

func (s *fakeSigner) VerifyAccessToken(token string) (TokenClaims, error) {
	return TokenClaims{}, nil
}

type fakeSessions struct {
	mu sync.Mutex

	byToken map[string]Session
	seq     int
	lastVer int // newVer passed to RevokeAll

	createErr    error
	getErr       error
	rotateErr    error
	revokeErr    error
	revokeAllErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: map[string]Session{}}
}

func (s *fakeSessions) CreateRefreshToken(ctx context.Context, userID string, ver int, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return "", s.createErr
	}
	s.seq++
	tok := fmt.Sprintf("rft%d:%s", s.seq, userID)
	s.byToken[tok] = Session{UserID: userID, Ver: ver}
	return tok, nil
}

func (s *fakeSessions) GetRefreshSession(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return Session{}, s.getErr
	}
	sess, ok := s.byToken[token]
	if !ok {
		return Session{}, errors.New("invalid refresh")
	}
	return sess, nil
}

func (s *fakeSessions) RotateRefreshToken(ctx context.Context, oldToken string, ver int, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotateErr != nil {
		return "", s.rotateErr
	}
	sess, ok := s.byToken[oldToken]
	if !ok {
		return "", errors.New("invalid refresh")
	}
	delete(s.byToken, oldToken)
	s.seq++
	newTok := fmt.Sprintf("rft%d:%s", s.seq, sess.UserID)
	s.byToken[newTok] = Session{UserID: sess.UserID, Ver: ver}
	return newTok, nil
}

func (s *fakeSessions) RevokeRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revokeErr != nil {
		return s.revokeErr
	}
	delete(s.byToken, token)
	return nil
}

func (s *fakeSessions) RevokeAll(ctx context.Context, userID string, newVer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revokeAllErr != nil {
		return s.revokeAllErr
	}
	for tok, sess := range s.byToken {
		if sess.UserID == userID {
			delete(s.byToken, tok)
		}
	}
	s.lastVer = newVer
	return nil
}

type fakePub struct {
	mu     sync.Mutex
	events []UserRegisteredEvent
	err    error
}

func (p *fakePub) PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

type frozenClock struct{ t time.Time }

func (c frozenClock) Now() time.Time { return c.t }

/*
Service factory for tests
*/

func newSvcForTest(t *testing.T) (*Service, *fakeUsers, *fakeHasher, *fakeSigner, *fakeSessions, *fakePub) {
	t.Helper()

	users := newFakeUsers()
	hasher := &fakeHasher{}
	signer := &fakeSigner{}
	sessions := newFakeSessions()
	pub := &fakePub{}
	clock := frozenClock{t: time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)}

	cfg := Config{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	svc := NewService(users, hasher, signer, sessions, pub, clock, cfg)
	if svc == nil {
		t.Fatalf("svc is nil")
	}
	return svc, users, hasher, signer, sessions, pub
}

func requireCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %q, got nil", wantCode)
	}
	if !domain.Is(err, wantCode) {
		t.Fatalf("expected code %q, got %v", wantCode, err)
	}
}
