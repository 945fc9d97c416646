package store

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	KindFile      = "file"
	KindDirectory = "directory"
)

// FileRecord is one durable row of the workspace tree.
// Content is non-nil only for files; directories never carry content.
type FileRecord struct {
	bun.BaseModel `bun:"table:file_records"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	ParentID  *string   `bun:"parent_id" json:"parentId"`
	Kind      string    `bun:"kind,notnull" json:"kind"`
	Content   *string   `bun:"content" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (r *FileRecord) IsDir() bool {
	return r.Kind == KindDirectory
}
