package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/domain/repositories"
)

type personRepository struct {
	db *gorm.DB
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(db *gorm.DB) repositories.PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Create(ctx context.Context, person *entities.Person) error {
	if person == nil {
		return errors.New("person cannot be nil")
	}
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *personRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Person, error) {
	var person entities.Person
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&person).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &person, nil
}

func (r *personRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Person, error) {
	var people []*entities.Person
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&people).Error; err != nil {
		return nil, err
	}
	return people, nil
}
