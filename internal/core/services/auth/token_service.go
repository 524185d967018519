package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken      = errors.New("invalid api token")
	ErrMissingToken      = errors.New("missing api token")
	ErrRateLimitExceeded = errors.New("too many failed attempts")
	ErrInvalidHash       = errors.New("invalid bcrypt hash")
)

const (
	maxFailures    = 5
	failureWindow  = 15 * time.Minute
	verifiedTTL    = 5 * time.Minute
	maxVerifiedLen = 64
)

type failure struct {
	count int
	last  time.Time
}

// TokenService checks bearer tokens against a single bcrypt hash from config.
// An empty hash disables authentication.
type TokenService struct {
	hash []byte
	now  func() time.Time

	mu       sync.Mutex
	failures map[string]failure
	verified map[string]time.Time // token -> expiry, skips bcrypt for repeat callers
}

// NewTokenService validates hash and returns the service.
func NewTokenService(hash string) (*TokenService, error) {
	s := &TokenService{
		now:      time.Now,
		failures: make(map[string]failure),
		verified: make(map[string]time.Time),
	}
	if hash == "" {
		return s, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	s.hash = []byte(hash)
	return s, nil
}

// Enabled reports whether a token hash is configured.
func (s *TokenService) Enabled() bool {
	return len(s.hash) > 0
}

// ValidateToken checks token for the given client (usually the remote IP).
// Clients with too many recent failures are refused without a bcrypt check.
func (s *TokenService) ValidateToken(ctx context.Context, client, token string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := s.checkRateLimit(client); err != nil {
		return err
	}
	if s.isVerified(token) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(token)); err != nil {
		s.incrementFailures(client)
		return ErrInvalidToken
	}

	s.resetFailures(client)
	s.markVerified(token)
	return nil
}

// HashToken produces a hash suitable for the API token setting.
func HashToken(token string, cost int) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}

// Private helpers

func (s *TokenService) checkRateLimit(client string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.failures[client]
	if !ok {
		return nil
	}
	if s.now().Sub(f.last) > failureWindow {
		delete(s.failures, client)
		return nil
	}
	if f.count >= maxFailures {
		return ErrRateLimitExceeded
	}
	return nil
}

func (s *TokenService) incrementFailures(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.failures[client]
	f.count++
	f.last = s.now()
	s.failures[client] = f
}

func (s *TokenService) resetFailures(client string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, client)
}

func (s *TokenService) isVerified(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.verified[token]
	if !ok {
		return false
	}
	if s.now().After(exp) {
		delete(s.verified, token)
		return false
	}
	return true
}

func (s *TokenService) markVerified(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.verified) >= maxVerifiedLen {
		s.verified = make(map[string]time.Time)
	}
	s.verified[token] = s.now().Add(verifiedTTL)
}
