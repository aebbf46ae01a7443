package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/notetaker/internal/domain/entities"
	"github.com/johnquangdev/notetaker/internal/domain/repositories"
)

// noteRepository implements the NoteRepository interface
type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *gorm.DB) repositories.NoteRepository {
	return &noteRepository{db: db}
}

// Create creates a new note
func (r *noteRepository) Create(ctx context.Context, note *entities.Note) error {
	if note == nil {
		return errors.New("note cannot be nil")
	}
	return r.db.WithContext(ctx).Create(note).Error
}

// FindByID retrieves a note by its ID
func (r *noteRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Note, error) {
	var note entities.Note
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// Update applies a patch to a note
func (r *noteRepository) Update(ctx context.Context, id uuid.UUID, patch entities.NotePatch) error {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}

	var res *gorm.DB
	if len(updates) == 0 {
		var count int64
		res = r.db.WithContext(ctx).Model(&entities.Note{}).Where("id = ?", id).Count(&count)
		if res.Error == nil && count == 0 {
			return entities.ErrNoteNotFound
		}
		return res.Error
	}

	res = r.db.WithContext(ctx).
		Model(&entities.Note{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrNoteNotFound
	}
	return nil
}

// Delete deletes a note
func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entities.Note{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.ErrNoteNotFound
	}
	return nil
}

// List retrieves notes with filters and pagination
func (r *noteRepository) List(ctx context.Context, filter entities.NoteFilter) ([]*entities.Note, int64, error) {
	var notes []*entities.Note
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Note{})
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Search != "" {
		searchPattern := fmt.Sprintf("%%%s%%", strings.ToLower(filter.Search))
		query = query.Where("LOWER(title) LIKE ?", searchPattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("updated_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Find(&notes).Error
	return notes, total, err
}
