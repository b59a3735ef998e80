package notes

import (
	"fmt"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Folio renders the human folio of a note, e.g. 03_C_17. It returns nil when
// any component is missing.
func Folio(branchID int64, op enums.OperationType, seq *int64) *string {
	if branchID <= 0 || seq == nil || *seq <= 0 {
		return nil
	}
	var letter string
	switch op {
	case enums.OperationPurchase:
		letter = "C"
	case enums.OperationSale:
		letter = "V"
	default:
		return nil
	}
	folio := fmt.Sprintf("%02d_%s_%d", branchID, letter, *seq)
	return &folio
}
