package ports

import (
	"context"

	"assetdesk/domain/core"
	"assetdesk/models"
)

// ErrDuplicateIdentifier is returned by Create when another equipment of the
// same profile already carries the identifier
var ErrDuplicateIdentifier = core.ErrDuplicate

// EquipmentFilters narrows equipment listings
type EquipmentFilters struct {
	Profile  string
	ImportID *core.ImportID
	Type     string
	Limit    int
	Offset   int
}

// EquipmentRepository persists imported equipment
type EquipmentRepository interface {
	Create(ctx context.Context, eq *models.Equipment) error
	GetByID(ctx context.Context, id core.EquipmentID) (*models.Equipment, error)
	List(ctx context.Context, filters EquipmentFilters) ([]*models.Equipment, error)
	Count(ctx context.Context, filters EquipmentFilters) (int, error)
}

// ImportRepository stores import batches and their reports
type ImportRepository interface {
	Save(ctx context.Context, batch *models.ImportBatch) error
	GetByID(ctx context.Context, id core.ImportID) (*models.ImportBatch, error)
	List(ctx context.Context, limit, offset int) ([]*models.ImportBatch, error)
}
