package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/baharkarakas/averulo-backend/internal/cache"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

var ErrInvalidCode = errors.New("invalid or expired code")

// OTPService runs passwordless e-mail login. Codes are stored bcrypt-hashed and
// are single use.
type OTPService struct {
	store  cache.Store
	mailer notify.Mailer
	users  repo.Users
	tm     *TokenManager
	ttl    time.Duration
	dev    bool
	log    *slog.Logger
}

func NewOTPService(store cache.Store, mailer notify.Mailer, users repo.Users, tm *TokenManager, ttl time.Duration, dev bool, log *slog.Logger) *OTPService {
	return &OTPService{store: store, mailer: mailer, users: users, tm: tm, ttl: ttl, dev: dev, log: log}
}

func otpKey(email string) string { return "otp:" + email }

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Send mails a fresh code. In dev a mail failure is not fatal and the code is
// returned so it can be echoed to the client.
func (s *OTPService) Send(ctx context.Context, email string) (devCode string, err error) {
	email = normalizeEmail(email)
	code, err := newCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, otpKey(email), string(hash), s.ttl); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	body := fmt.Sprintf("<p>Your login code is <strong>%s</strong>. It expires in %d minutes.</p>", code, int(s.ttl.Minutes()))
	if err := s.mailer.Send(ctx, email, "Your Averulo login code", body); err != nil {
		if !s.dev {
			return "", fmt.Errorf("send otp: %w", err)
		}
		s.log.Warn("otp mail failed, echoing code (dev)", "email", email, "err", err)
		return code, nil
	}
	return "", nil
}

// Verify consumes the code and returns a bearer token for the (possibly new) user.
func (s *OTPService) Verify(ctx context.Context, email, code string) (string, models.User, error) {
	email = normalizeEmail(email)
	hash, err := s.store.Get(ctx, otpKey(email))
	if errors.Is(err, cache.ErrMiss) {
		return "", models.User{}, ErrInvalidCode
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("load otp: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) != nil {
		return "", models.User{}, ErrInvalidCode
	}
	if err := s.store.Delete(ctx, otpKey(email)); err != nil {
		s.log.Warn("otp delete failed", "email", email, "err", err)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		u, err = s.users.Create(ctx, email, models.RoleUser)
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("resolve user: %w", err)
	}
	tok, _, err := s.tm.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return "", models.User{}, err
	}
	return tok, u, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
