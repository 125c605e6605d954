package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"assetdesk/domain/core"
	apperrors "assetdesk/internal/errors"
	"assetdesk/models"
	"assetdesk/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const equipmentColumns = `id, import_id, profile, row_index, type, marque, modele, identifier,
		proprietaire, departement, date_acquisition, est_premiere_main,
		attributes, specifications, warnings, confidence, created_at`

// EquipmentRepositoryImpl implements EquipmentRepository on sqlx. Queries are
// written with ? placeholders and rebound for the driver in use.
type EquipmentRepositoryImpl struct {
	db *sqlx.DB
}

// NewEquipmentRepository creates a new equipment repository
func NewEquipmentRepository(db *sqlx.DB) ports.EquipmentRepository {
	return &EquipmentRepositoryImpl{db: db}
}

// Create inserts the equipment. A second equipment of the same profile with
// the same identifier fails with ports.ErrDuplicateIdentifier.
func (r *EquipmentRepositoryImpl) Create(ctx context.Context, eq *models.Equipment) error {
	if eq.ID == "" {
		eq.ID = core.NewEquipmentID()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO equipment (`+equipmentColumns+`)
		VALUES (
			:id, :import_id, :profile, :row_index, :type, :marque, :modele, :identifier,
			:proprietaire, :departement, :date_acquisition, :est_premiere_main,
			:attributes, :specifications, :warnings, :confidence, :created_at
		)
	`, eq)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate(core.NewDuplicateError("identifier", eq.Identifier.String), "cannot store equipment")
		}
		return err
	}
	return nil
}

// GetByID retrieves one equipment
func (r *EquipmentRepositoryImpl) GetByID(ctx context.Context, id core.EquipmentID) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.db.GetContext(ctx, &eq, r.db.Rebind(`
		SELECT `+equipmentColumns+`
		FROM equipment
		WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("equipment", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &eq, nil
}

// List returns equipment matching the filters, in insertion order
func (r *EquipmentRepositoryImpl) List(ctx context.Context, filters ports.EquipmentFilters) ([]*models.Equipment, error) {
	where, args := equipmentWhere(filters)
	query := `SELECT ` + equipmentColumns + ` FROM equipment` + where + ` ORDER BY created_at ASC, row_index ASC`

	if filters.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filters.Offset)
		}
	}

	items := []*models.Equipment{}
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of equipment matching the filters, ignoring paging
func (r *EquipmentRepositoryImpl) Count(ctx context.Context, filters ports.EquipmentFilters) (int, error) {
	where, args := equipmentWhere(filters)
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM equipment`+where), args...)
	return n, err
}

func equipmentWhere(filters ports.EquipmentFilters) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filters.Profile != "" {
		clauses = append(clauses, "profile = ?")
		args = append(args, filters.Profile)
	}
	if filters.ImportID != nil {
		clauses = append(clauses, "import_id = ?")
		args = append(args, *filters.ImportID)
	}
	if filters.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filters.Type)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// isUniqueViolation recognizes unique constraint failures from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return false
}
