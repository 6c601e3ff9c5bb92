package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrOTPNotFound is returned when no live code or verification exists for an email.
var ErrOTPNotFound = errors.New("otp not found")

const (
	otpCodePrefix     = "otp:code:"
	otpVerifiedPrefix = "otp:verified:"
)

// OTPRepository keeps password reset codes in Redis with an expiry.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs the repository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(prefix, email string) string {
	return prefix + strings.ToLower(strings.TrimSpace(email))
}

// SaveCode stores code for email, replacing any previous one.
func (r *OTPRepository) SaveCode(ctx context.Context, email, code string, ttl time.Duration) error {
	if r.client == nil {
		return errors.New("otp store unavailable")
	}
	if err := r.client.Set(ctx, otpKey(otpCodePrefix, email), code, ttl).Err(); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// GetCode returns the live code for email.
func (r *OTPRepository) GetCode(ctx context.Context, email string) (string, error) {
	if r.client == nil {
		return "", ErrOTPNotFound
	}
	code, err := r.client.Get(ctx, otpKey(otpCodePrefix, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrOTPNotFound
		}
		return "", fmt.Errorf("get otp: %w", err)
	}
	return code, nil
}

// MarkVerified drops the code and opens a reset window for email.
func (r *OTPRepository) MarkVerified(ctx context.Context, email string, window time.Duration) error {
	if r.client == nil {
		return errors.New("otp store unavailable")
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, otpKey(otpCodePrefix, email))
	pipe.Set(ctx, otpKey(otpVerifiedPrefix, email), "1", window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark otp verified: %w", err)
	}
	return nil
}

// ConsumeVerified closes the reset window, returning ErrOTPNotFound when none was open.
func (r *OTPRepository) ConsumeVerified(ctx context.Context, email string) error {
	if r.client == nil {
		return ErrOTPNotFound
	}
	n, err := r.client.Del(ctx, otpKey(otpVerifiedPrefix, email)).Result()
	if err != nil {
		return fmt.Errorf("consume otp verification: %w", err)
	}
	if n == 0 {
		return ErrOTPNotFound
	}
	return nil
}
