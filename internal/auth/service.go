package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rida-Lamiini/Chat-app/internal/models"
	"github.com/Rida-Lamiini/Chat-app/internal/storage"
	"github.com/Rida-Lamiini/Chat-app/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrMissingFields      = errors.New("name, email and password are required")
)

// Service owns signup and login against the remote store. Everything else
// about identity (token transport, session lifetime) lives in TokenManager
// and the bridge middleware.
type Service struct {
	store  store.Store
	blobs  storage.BlobStore
	tokens *TokenManager
}

func NewService(st store.Store, blobs storage.BlobStore, tokens *TokenManager) *Service {
	return &Service{store: st, blobs: blobs, tokens: tokens}
}

// Signup creates the profile document and its empty membership list. An
// optional avatar payload is uploaded first so the profile can carry its
// retrieval URL from the start.
func (s *Service) Signup(ctx context.Context, name, email, password string, avatar []byte) (*models.UserProfile, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if _, err := s.store.GetProfileByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.NewString()
	photoURL := ""
	if len(avatar) > 0 {
		data, ct, err := storage.NormalizeImage(avatar, http.DetectContentType(avatar))
		if err != nil {
			return nil, fmt.Errorf("process avatar: %w", err)
		}
		photoURL, err = s.blobs.Upload(ctx, "avatars/"+uid, ct, data)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
	}

	p := &models.UserProfile{
		ID:           uid,
		Name:         name,
		Email:        email,
		ProfilePhoto: photoURL,
		Blocked:      []string{},
		PasswordHash: string(hash),
	}
	// the unique email index closes the window between the check above and
	// the insert: a concurrent signup with the same email loses here
	if err := s.store.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := s.store.CreateMembershipList(ctx, uid); err != nil {
		return nil, fmt.Errorf("create membership list: %w", err)
	}
	return p, nil
}

// Login verifies credentials and returns the profile plus a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.UserProfile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	p, err := s.store.GetProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(p.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return p, token, nil
}
