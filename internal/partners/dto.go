package partners

import (
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// CreateBranchInput describes a new yard.
type CreateBranchInput struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// CreatePartnerInput describes a supplier or customer.
type CreatePartnerInput struct {
	Name  string  `json:"name" validate:"required,max=150"`
	Plate *string `json:"plate,omitempty" validate:"omitempty,max=20"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// BranchDTO is the branch read model.
type BranchDTO struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Active  bool    `json:"active"`
}

// PartnerDTO is the shared read model for suppliers and customers.
type PartnerDTO struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Plate    *string           `json:"plate,omitempty"`
	Phone    *string           `json:"phone,omitempty"`
	Kind     enums.PartnerKind `json:"kind"`
	BranchID *int64            `json:"branch_id,omitempty"`
	Active   bool              `json:"active"`
}

func branchToDTO(b models.Branch) BranchDTO {
	return BranchDTO{ID: b.ID, Name: b.Name, Address: b.Address, Active: b.Active}
}

func supplierToDTO(s models.Supplier) PartnerDTO {
	return PartnerDTO{ID: s.ID, Name: s.Name, Plate: s.Plate, Phone: s.Phone, Kind: s.Kind, BranchID: s.BranchID, Active: s.Active}
}

func customerToDTO(c models.Customer) PartnerDTO {
	return PartnerDTO{ID: c.ID, Name: c.Name, Plate: c.Plate, Phone: c.Phone, Kind: c.Kind, BranchID: c.BranchID, Active: c.Active}
}
