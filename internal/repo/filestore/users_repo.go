// Package filestore implements the repositories on the shared file-backed
// record protocol: strict parse, lenient recovery, atomic rewrite, per-key
// locking.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/inspecthq/fieldreport/internal/domain"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/pkg/logger"
)

type UserRepository interface {
	GetByPhone(phone string) (*domain.UserRecord, error)
	GetByID(userID int64) (*domain.UserRecord, error)
	Create(phone, passwordHash, email string) (*domain.UserRecord, error)
	// SetVerification stores a pending code hash and expiry, updating email
	// and password hash in the same rewrite.
	SetVerification(phone, email, passwordHash, codeHash string, expiresAt time.Time) (*domain.UserRecord, error)
	// MarkVerified flips the verified bit and clears the pending code.
	MarkVerified(phone string) (*domain.UserRecord, error)
	UpdateProfile(userID int64, upd domain.ProfileUpdate) (*domain.UserRecord, error)
}

// userRepository keeps the whole directory cached in memory. Every write
// rewrites the full file, so all mutations serialize on one mutex; user id
// allocation happens under that same mutex and ids are never reused.
type userRepository struct {
	paths storage.Paths

	mu     sync.Mutex
	cache  map[string]*domain.UserRecord // keyed by phone
	loaded bool
}

func NewUserRepository(paths storage.Paths) UserRepository {
	return &userRepository{
		paths: paths,
		cache: make(map[string]*domain.UserRecord),
	}
}

func (r *userRepository) loadLocked() map[string]*domain.UserRecord {
	if r.loaded {
		return r.cache
	}
	r.loaded = true

	raw, err := os.ReadFile(r.paths.UsersFile())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("users file unreadable, starting empty", "error", err)
		}
		return r.cache
	}

	var users []domain.UserRecord
	recoveredLeniently := false
	if jsonErr := json.Unmarshal(raw, &users); jsonErr != nil {
		recovered, recErr := storage.DecodeListLenient[domain.UserRecord](raw, func(u *domain.UserRecord) bool {
			return u.Phone != "" && u.UserID > 0 && u.PasswordHash != ""
		})
		if recErr != nil {
			logger.Error("users file corrupt beyond recovery, starting empty", "error", recErr)
			return r.cache
		}
		users = recovered
		recoveredLeniently = true
		logger.Warn("users file recovered leniently", "kept", len(users))
	}

	for i := range users {
		u := users[i]
		r.cache[u.Phone] = &u
	}
	if recoveredLeniently {
		if err := r.saveLocked(); err != nil {
			logger.Error("failed to heal users file", "error", err)
		}
	}
	return r.cache
}

func (r *userRepository) saveLocked() error {
	users := make([]*domain.UserRecord, 0, len(r.cache))
	for _, u := range r.cache {
		users = append(users, u)
	}
	return storage.WriteJSON(r.paths.UsersFile(), users)
}

func (r *userRepository) nextIDLocked() int64 {
	var max int64
	for _, u := range r.cache {
		if u.UserID > max {
			max = u.UserID
		}
	}
	return max + 1
}

func (r *userRepository) GetByPhone(phone string) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.loadLocked()[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepository) GetByID(userID int64) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.loadLocked() {
		if u.UserID == userID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepository) Create(phone, passwordHash, email string) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.loadLocked()
	if _, exists := users[phone]; exists {
		return nil, domain.ErrDuplicatePhone
	}

	user := &domain.UserRecord{
		UserID:       r.nextIDLocked(),
		Phone:        phone,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    domain.Timestamp(time.Now()),
	}
	users[phone] = user

	if err := r.saveLocked(); err != nil {
		delete(users, phone)
		return nil, fmt.Errorf("persist users: %w", err)
	}
	cp := *user
	return &cp, nil
}

func (r *userRepository) SetVerification(phone, email, passwordHash, codeHash string, expiresAt time.Time) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.loadLocked()[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}

	user.Email = email
	if passwordHash != "" {
		user.PasswordHash = passwordHash
	}
	user.VerificationCodeHash = codeHash
	user.VerificationExpiresAt = domain.Timestamp(expiresAt)

	if err := r.saveLocked(); err != nil {
		return nil, fmt.Errorf("persist users: %w", err)
	}
	cp := *user
	return &cp, nil
}

func (r *userRepository) MarkVerified(phone string) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.loadLocked()[phone]
	if !ok {
		return nil, domain.ErrNotFound
	}

	user.Verified = true
	user.VerificationCodeHash = ""
	user.VerificationExpiresAt = ""

	if err := r.saveLocked(); err != nil {
		return nil, fmt.Errorf("persist users: %w", err)
	}
	cp := *user
	return &cp, nil
}

func (r *userRepository) UpdateProfile(userID int64, upd domain.ProfileUpdate) (*domain.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.loadLocked() {
		if user.UserID == userID {
			user.ApplyProfile(upd)
			if err := r.saveLocked(); err != nil {
				return nil, fmt.Errorf("persist users: %w", err)
			}
			cp := *user
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}
