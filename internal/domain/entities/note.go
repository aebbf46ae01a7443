package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is a rich-text note. Content holds the serialized editor document.
type Note struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(255);not null;index"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Note) TableName() string {
	return "notes"
}

// BeforeCreate assigns an id when the caller did not.
func (n *Note) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// NotePatch carries the fields an update may change. Nil fields are left
// alone.
type NotePatch struct {
	Title   *string
	Content *string
}

// NoteFilter narrows a note listing.
type NoteFilter struct {
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}
