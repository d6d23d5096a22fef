package treatment

import (
	"time"

	"github.com/google/uuid"
)

const DefaultColor = "#94a3b8"

type Group struct {
	ID         uuid.UUID   `json:"id"`
	NameEn     string      `json:"name_en"`
	NameAr     string      `json:"name_ar"`
	Color      string      `json:"color"`
	CreatedAt  time.Time   `json:"created_at"`
	Treatments []Treatment `json:"treatments,omitempty"`
}

type Treatment struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	NameEn    string    `json:"name_en"`
	NameAr    string    `json:"name_ar"`
	BasePrice *float64  `json:"base_price"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateGroupRequest struct {
	NameEn string `json:"name_en" validate:"required,max=255"`
	NameAr string `json:"name_ar" validate:"required,max=255"`
	Color  string `json:"color" validate:"omitempty,hexcolor"`
}

type CreateTreatmentRequest struct {
	GroupID   string   `json:"group_id" validate:"required,uuid"`
	NameEn    string   `json:"name_en" validate:"required,max=255"`
	NameAr    string   `json:"name_ar" validate:"required,max=255"`
	BasePrice *float64 `json:"base_price" validate:"omitempty,gte=0"`
}
