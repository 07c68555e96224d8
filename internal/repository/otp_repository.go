package repository

import (
	"context"
	"sync"
	"time"
)

// OTPPurpose separates email verification codes from password reset codes
// so one can never be spent on the other.
type OTPPurpose string

const (
	PurposeVerify OTPPurpose = "verify"
	PurposeReset  OTPPurpose = "reset"
)

type otpRecord struct {
	codeHash  string
	expiresAt time.Time
}

// OTPRepo keeps the hash of the latest code per email and purpose. Issuing
// a new code replaces the previous one.
type OTPRepo struct {
	mu    sync.Mutex
	codes map[string]otpRecord
	now   func() time.Time
}

func NewOTPRepo() *OTPRepo {
	return &OTPRepo{codes: map[string]otpRecord{}, now: time.Now}
}

func otpKey(email string, p OTPPurpose) string { return string(p) + ":" + email }

// Store records a code hash that expires at exp.
func (r *OTPRepo) Store(_ context.Context, email string, p OTPPurpose, codeHash string, exp time.Time) error {
	r.mu.Lock()
	r.codes[otpKey(email, p)] = otpRecord{codeHash: codeHash, expiresAt: exp}
	r.mu.Unlock()
	return nil
}

// Consume validates and revokes a code in one step. A missing, expired or
// mismatching code yields ErrNotFound.
func (r *OTPRepo) Consume(_ context.Context, email string, p OTPPurpose, codeHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := otpKey(email, p)
	rec, ok := r.codes[key]
	if !ok {
		return ErrNotFound
	}
	if r.now().UTC().After(rec.expiresAt) {
		delete(r.codes, key)
		return ErrNotFound
	}
	if rec.codeHash != codeHash {
		return ErrNotFound
	}
	delete(r.codes, key)
	return nil
}

// RevokeAll drops every outstanding code for email.
func (r *OTPRepo) RevokeAll(_ context.Context, email string) {
	r.mu.Lock()
	delete(r.codes, otpKey(email, PurposeVerify))
	delete(r.codes, otpKey(email, PurposeReset))
	r.mu.Unlock()
}
