package store

import (
	"context"
	"database/sql"
	"errors"

	"walletledger/internal/apperr"
	"walletledger/internal/models"
)

type OwnerStore struct {
	db DB
}

func NewOwnerStore(db DB) *OwnerStore {
	return &OwnerStore{db: db}
}

func (s *OwnerStore) Create(ctx context.Context, tx Getter, owner models.Owner) (models.Owner, error) {
	var created models.Owner
	err := tx.GetContext(ctx, &created, `
		INSERT INTO owners (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, created_at
	`, owner.ID, owner.Name, owner.Email, owner.PasswordHash)
	if err != nil {
		if isUniqueViolation(err, constraintOwnerEmail) {
			return models.Owner{}, apperr.DuplicateEmail(owner.Email)
		}
		return models.Owner{}, err
	}
	return created, nil
}

func (s *OwnerStore) GetByID(ctx context.Context, ownerID string) (models.Owner, error) {
	var owner models.Owner
	err := s.db.GetContext(ctx, &owner, `SELECT id, name, email, password_hash, created_at FROM owners WHERE id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Owner{}, apperr.UserNotFound(ownerID)
	}
	return owner, err
}

func (s *OwnerStore) GetByEmail(ctx context.Context, email string) (models.Owner, error) {
	var owner models.Owner
	err := s.db.GetContext(ctx, &owner, `SELECT id, name, email, password_hash, created_at FROM owners WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Owner{}, &apperr.Error{Kind: apperr.KindUserNotFound, Message: "no user registered with this email"}
	}
	return owner, err
}
