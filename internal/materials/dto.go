package materials

import "github.com/blankhall98/Metaleria-API/pkg/db/models"

const defaultUnit = "kg"

// CreateMaterialInput describes a new catalogue entry.
type CreateMaterialInput struct {
	Name string `json:"name" validate:"required,max=120"`
	Unit string `json:"unit" validate:"omitempty,max=20"`
}

// MaterialDTO is the read model returned to callers.
type MaterialDTO struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}

func toDTO(m models.Material) MaterialDTO {
	return MaterialDTO{
		ID:     m.ID,
		Name:   m.Name,
		Unit:   m.Unit,
		Active: m.Active,
	}
}
