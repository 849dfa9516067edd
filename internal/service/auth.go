package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"tripplanner/internal/domain"
	"tripplanner/internal/models"
)

// StoreAuthenticator verifies credentials against the users collection.
type StoreAuthenticator struct {
	store domain.RecordStore
}

func NewStoreAuthenticator(store domain.RecordStore) *StoreAuthenticator {
	return &StoreAuthenticator{store: store}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// lookup queries users by the address as typed and, when it differs, by its
// lower-cased form. Store filters are case-sensitive; matching is not.
func (a *StoreAuthenticator) lookup(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	for _, candidate := range emailCandidates(email) {
		var found []models.User
		if err := a.store.Fetch(ctx, models.CollectionUsers, domain.Filter{"email": candidate}, &found); err != nil {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		users = append(users, found...)
	}
	return users, nil
}

func emailCandidates(email string) []string {
	raw := strings.TrimSpace(email)
	lower := normalizeEmail(raw)
	if raw == lower {
		return []string{raw}
	}
	return []string{raw, lower}
}

func (a *StoreAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	users, err := a.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	want := normalizeEmail(email)
	for _, u := range users {
		if normalizeEmail(u.Email) != want {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
			public := u.Public()
			return &public, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (a *StoreAuthenticator) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	typed := strings.TrimSpace(email)
	email = normalizeEmail(typed)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrMissingField)
	}

	users, err := a.lookup(ctx, typed)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) == email {
			return nil, ErrUserExists
		}
	}

	var created models.User
	record := models.User{Name: name, Email: email, Password: password}
	if err := a.store.Create(ctx, models.CollectionUsers, record, &created); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	public := created.Public()
	return &public, nil
}
