package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/domain"
)

// SessionStore implements auth.SessionStore with opaque refresh tokens:
// - rt:<token>  -> "<uid>:<ver>" with TTL
// - rtver:<uid> -> token version mirror for middleware revocation checks
// - rtu:<uid>   -> set of the user's live tokens, so RevokeAll can sweep them
//
// The database row is the authority on token versions; rtver is a cache the
// middleware reads on the hot path.
type SessionStore struct {
	rdb *goredis.Client

	rtPrefix    string
	rtverPrefix string
	rtuPrefix   string

	tokenBytes int
}

func NewSessionStore(c *Client) *SessionStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &SessionStore{
		rdb:         rdb,
		rtPrefix:    "rt:",
		rtverPrefix: "rtver:",
		rtuPrefix:   "rtu:",
		tokenBytes:  32, // 256-bit
	}
}

func (s *SessionStore) CreateRefreshToken(ctx context.Context, userID string, ver int, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrValidation("user_id is required")
	}
	if s.rdb == nil {
		return "", domain.ErrRedisUnavailable(errors.New("session store not configured"))
	}

	token, err := s.newOpaqueToken()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	val := fmt.Sprintf("%s:%d", userID, ver)
	if err := s.rdb.Set(ctx, s.rtPrefix+token, val, ttl).Err(); err != nil {
		return "", domain.ErrRedisUnavailable(err)
	}

	// Seed the version mirror without clobbering a concurrent revoke-all;
	// membership tracking is best effort.
	_ = s.rdb.SetNX(ctx, s.rtverPrefix+userID, strconv.Itoa(ver), 0).Err()
	_ = s.rdb.SAdd(ctx, s.rtuPrefix+userID, token).Err()

	return token, nil
}

func (s *SessionStore) GetRefreshSession(ctx context.Context, token string) (auth.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Session{}, domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return auth.Session{}, domain.ErrRedisUnavailable(errors.New("session store not configured"))
	}

	val, err := s.rdb.Get(ctx, s.rtPrefix+token).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return auth.Session{}, domain.ErrRefreshTokenInvalid()
		}
		return auth.Session{}, domain.ErrRedisUnavailable(err)
	}

	uid, ver, err := parseUIDVer(val)
	if err != nil {
		return auth.Session{}, domain.ErrRefreshTokenInvalid()
	}
	return auth.Session{UserID: uid, Ver: ver}, nil
}

func (s *SessionStore) RotateRefreshToken(ctx context.Context, oldToken string, ver int, ttl time.Duration) (string, error) {
	oldToken = strings.TrimSpace(oldToken)
	if oldToken == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}
	if s.rdb == nil {
		return "", domain.ErrRedisUnavailable(errors.New("session store not configured"))
	}

	newToken, err := s.newOpaqueToken()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	// Atomic "move": GET old -> DEL old -> SET new with TTL.
	// Returns the old value (uid:ver) if it existed, otherwise nil. A token
	// replayed after rotation finds nothing and fails here.
	const lua = `
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], v, "PX", ARGV[1])
return v
`
	ttlms := ttl.Milliseconds()
	if ttlms <= 0 {
		ttlms = (7 * 24 * time.Hour).Milliseconds()
	}

	res, err := s.rdb.Eval(ctx, lua, []string{s.rtPrefix + oldToken, s.rtPrefix + newToken}, ttlms).Result()
	if err != nil {
		// a nil script reply surfaces as goredis.Nil: replayed or revoked token
		if errors.Is(err, goredis.Nil) {
			return "", domain.ErrRefreshTokenInvalid()
		}
		return "", domain.ErrRedisUnavailable(err)
	}
	if res == nil {
		return "", domain.ErrRefreshTokenInvalid()
	}

	val, ok := res.(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}

	uid, tokVer, err := parseUIDVer(val)
	if err != nil {
		return "", domain.ErrRefreshTokenInvalid()
	}

	// ver is the caller's current version. A session from an older generation
	// lost a race with revoke-all; kill the moved token too.
	if tokVer != ver {
		_ = s.rdb.Del(ctx, s.rtPrefix+newToken).Err()
		_ = s.rdb.SRem(ctx, s.rtuPrefix+uid, oldToken).Err()
		return "", domain.ErrRefreshTokenInvalid()
	}

	_ = s.rdb.SRem(ctx, s.rtuPrefix+uid, oldToken).Err()
	_ = s.rdb.SAdd(ctx, s.rtuPrefix+uid, newToken).Err()

	return newToken, nil
}

func (s *SessionStore) RevokeRefreshToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		// idempotent
		return nil
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("session store not configured"))
	}

	// GET first so the membership set stays tidy; an already-gone token is
	// a no-op.
	val, err := s.rdb.Get(ctx, s.rtPrefix+token).Result()
	if err == nil {
		if uid, _, perr := parseUIDVer(val); perr == nil {
			_ = s.rdb.SRem(ctx, s.rtuPrefix+uid, token).Err()
		}
	}
	_ = s.rdb.Del(ctx, s.rtPrefix+token).Err()
	return nil
}

func (s *SessionStore) RevokeAll(ctx context.Context, userID string, newVer int) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrValidation("user_id is required")
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errors.New("session store not configured"))
	}

	// Record the new version first: even if the sweep below misses a token,
	// its stored ver no longer matches and it stops refreshing.
	if err := s.rdb.Set(ctx, s.rtverPrefix+userID, strconv.Itoa(newVer), 0).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}

	tokens, err := s.rdb.SMembers(ctx, s.rtuPrefix+userID).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return domain.ErrRedisUnavailable(err)
	}
	if len(tokens) > 0 {
		keys := make([]string, 0, len(tokens))
		for _, t := range tokens {
			keys = append(keys, s.rtPrefix+t)
		}
		_ = s.rdb.Del(ctx, keys...).Err()
	}
	_ = s.rdb.Del(ctx, s.rtuPrefix+userID).Err()
	return nil
}

// GetTokenVersion serves the middleware's revocation check. A miss reports
// version 0, which never rejects: real versions start at 1 and only a mirror
// written by revoke-all can exceed a live token's ver.
func (s *SessionStore) GetTokenVersion(ctx context.Context, userID string) (int, error) {
	if s.rdb == nil {
		return 0, nil
	}
	v, err := s.rdb.Get(ctx, s.rtverPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, domain.ErrRedisUnavailable(err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// ---- helpers ----

func parseUIDVer(s string) (uid string, ver int, err error) {
	// uid is a uuid, never contains ':'
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return "", 0, fmt.Errorf("bad token val")
	}
	uid = strings.TrimSpace(s[:idx])
	if uid == "" {
		return "", 0, fmt.Errorf("empty uid")
	}
	ver, err = strconv.Atoi(strings.TrimSpace(s[idx+1:]))
	if err != nil {
		return "", 0, err
	}
	return uid, ver, nil
}

func (s *SessionStore) newOpaqueToken() (string, error) {
	b := make([]byte, s.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// URL-safe, no padding
	return base64.RawURLEncoding.EncodeToString(b), nil
}
