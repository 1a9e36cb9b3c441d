package gormstore

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

// ErrUserNotFound is returned by GetUser for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// CreateUser registers an account. Emails are unique case-insensitively.
func (store *Store) CreateUser(ctx context.Context, user booking.User) (booking.User, error) {
	model := User{
		ID:     user.ID.String(),
		Name:   user.Name,
		Email:  strings.ToLower(strings.TrimSpace(user.Email)),
		Role:   string(user.Role),
		Active: user.Active,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeDuplicate, err)
		}
		return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	created, err := mapUser(model)
	if err != nil {
		return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return created, nil
}

// GetUser loads an account by id.
func (store *Store) GetUser(ctx context.Context, userID booking.UserID) (booking.User, error) {
	var model User
	if err := store.db.WithContext(ctx).Where("id = ?", userID.String()).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, ErrUserNotFound)
		}
		return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	user, err := mapUser(model)
	if err != nil {
		return booking.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return user, nil
}
