package notes

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

var headerColumns = []string{
	"admin_id", "supplier_id", "customer_id", "state",
	"total_gross_kg", "total_discount_kg", "total_net_kg", "total_amount", "amount_paid",
	"payment_method", "account_ref", "due_date", "worker_comment", "admin_comment",
	"invoice_ref", "invoiced_at", "transfer_group_id", "approved_at", "cancelled_at", "updated_at",
}

var lineColumns = []string{
	"gross_kg", "discount_kg", "net_kg", "unit_price", "price_version_id", "subtotal",
	"customer_class", "updated_at",
}

// ListFilter narrows note listings.
type ListFilter struct {
	BranchID      *int64
	OperationType *enums.OperationType
	State         *enums.NoteState
	From          *time.Time
	To            *time.Time
	BeforeID      int64
	Limit         int
}

// Repository persists notes with their lines, snapshots and evidence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// NextFolio increments and returns the folio counter of (branch, op).
	NextFolio(ctx context.Context, branchID int64, op enums.OperationType) (int64, error)
	Create(ctx context.Context, note *models.Note) error
	FindForUpdate(ctx context.Context, id int64) (*models.Note, error)
	FindByID(ctx context.Context, id int64) (*models.Note, error)
	SaveHeader(ctx context.Context, note *models.Note) error
	SaveLine(ctx context.Context, line *models.WeightLine) error
	ReplaceSubWeighings(ctx context.Context, lineID int64, subs []models.SubWeighing) error
	UpsertSnapshot(ctx context.Context, snapshot *models.NoteSnapshot) error
	FindSnapshot(ctx context.Context, noteID int64) (*models.NoteSnapshot, error)
	Delete(ctx context.Context, noteID int64) error
	AddEvidence(ctx context.Context, evidence *models.NoteEvidence) error
	ListEvidence(ctx context.Context, noteID int64) ([]models.NoteEvidence, error)
	List(ctx context.Context, filter ListFilter) ([]models.Note, error)
	ListApprovedIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a notes repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) NextFolio(ctx context.Context, branchID int64, op enums.OperationType) (int64, error) {
	counter := models.FolioCounter{BranchID: branchID, OperationType: op, LastNumber: 1}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "operation_type"}},
			DoUpdates: clause.Assignments(map[string]any{"last_number": gorm.Expr("folio_counters.last_number + 1")}),
		}).
		Create(&counter).Error; err != nil {
		return 0, err
	}
	var current models.FolioCounter
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND operation_type = ?", branchID, op).
		First(&current).Error; err != nil {
		return 0, err
	}
	return current.LastNumber, nil
}

func (r *repository) Create(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *repository) withLines(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Lines.SubWeighings", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") })
}

func (r *repository) FindForUpdate(ctx context.Context, id int64) (*models.Note, error) {
	var note models.Note
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	if err := r.withLines(q).First(&note, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Note, error) {
	var note models.Note
	if err := r.withLines(r.db.WithContext(ctx)).First(&note, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *repository) SaveHeader(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).
		Model(note).
		Select(headerColumns).
		Omit(clause.Associations).
		Updates(note).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.WeightLine) error {
	return r.db.WithContext(ctx).
		Model(line).
		Select(lineColumns).
		Omit(clause.Associations).
		Updates(line).Error
}

func (r *repository) ReplaceSubWeighings(ctx context.Context, lineID int64, subs []models.SubWeighing) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("line_id = ?", lineID).Delete(&models.SubWeighing{}).Error; err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}
	for i := range subs {
		subs[i].ID = 0
		subs[i].LineID = lineID
	}
	return db.Create(&subs).Error
}

func (r *repository) UpsertSnapshot(ctx context.Context, snapshot *models.NoteSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "captured_by", "captured_at"}),
		}).
		Create(snapshot).Error
}

func (r *repository) FindSnapshot(ctx context.Context, noteID int64) (*models.NoteSnapshot, error) {
	var snapshot models.NoteSnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "note_id = ?", noteID).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *repository) Delete(ctx context.Context, noteID int64) error {
	db := r.db.WithContext(ctx)
	lineIDs := db.Model(&models.WeightLine{}).Select("id").Where("note_id = ?", noteID)
	if err := db.Where("line_id IN (?)", lineIDs).Delete(&models.SubWeighing{}).Error; err != nil {
		return err
	}
	if err := db.Where("note_id = ?", noteID).Delete(&models.WeightLine{}).Error; err != nil {
		return err
	}
	if err := db.Where("note_id = ?", noteID).Delete(&models.NoteSnapshot{}).Error; err != nil {
		return err
	}
	if err := db.Where("note_id = ?", noteID).Delete(&models.NoteEvidence{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", noteID).Delete(&models.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AddEvidence(ctx context.Context, evidence *models.NoteEvidence) error {
	return r.db.WithContext(ctx).Create(evidence).Error
}

func (r *repository) ListEvidence(ctx context.Context, noteID int64) ([]models.NoteEvidence, error) {
	var rows []models.NoteEvidence
	err := r.db.WithContext(ctx).Where("note_id = ?", noteID).Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Note, error) {
	q := r.db.WithContext(ctx).Model(&models.Note{})
	if filter.BranchID != nil {
		q = q.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.OperationType != nil {
		q = q.Where("operation_type = ?", *filter.OperationType)
	}
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.BeforeID > 0 {
		q = q.Where("id < ?", filter.BeforeID)
	}
	var rows []models.Note
	err := q.Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListApprovedIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Note{}).
		Where("state = ? AND id > ?", enums.NoteStateApproved, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
