package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Product is owned by the listings service; this backend only reads it.
type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index" json:"ownerId"`
	Title       string         `gorm:"column:title;type:text;not null;default:''" json:"title"`
	Description string         `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Images      datatypes.JSON `gorm:"column:images;type:jsonb" json:"images"`
	Condition   string         `gorm:"column:estado;type:text;not null;default:''" json:"estado"`
	Preference  string         `gorm:"column:preference;type:text;not null;default:''" json:"preference"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Product) TableName() string { return "product" }

// ImageList decodes Images, tolerating a missing or malformed column.
func (p *Product) ImageList() []string {
	out := []string{}
	if p == nil || len(p.Images) == 0 {
		return out
	}
	_ = json.Unmarshal(p.Images, &out)
	return out
}

// User is owned by the accounts service; this backend only reads it.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"column:username;type:text;not null;default:''" json:"username"`
	Email     string    `gorm:"column:email;type:text;not null;default:''" json:"email"`
	Role      string    `gorm:"column:role;type:text;not null;default:'user'" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
}

func (User) TableName() string { return "users" }
