package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vitalpath-ai/platform/pkg/common/fault"
)

// JobModel is the Postgres row for a job record. Scalar columns carry
// what queries filter on; the full snapshot rides along as JSON so the
// schema never chases the record shape.
type JobModel struct {
	ID          string         `gorm:"primaryKey;column:id"`
	State       string         `gorm:"column:state;index"`
	Progress    int            `gorm:"column:progress"`
	Record      datatypes.JSON `gorm:"column:record"`
	CreatedAt   time.Time      `gorm:"column:created_at;index"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at"`
}

func (JobModel) TableName() string {
	return "assessment_jobs"
}

// GormRepository implements Repository on Postgres.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&JobModel{})
}

func toModel(rec *Record) (*JobModel, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, fault.Wrap(fault.ClassInternal, fault.CodeInternal, "encode job record", err)
	}
	return &JobModel{
		ID:          rec.ID,
		State:       string(rec.State),
		Progress:    rec.Progress,
		Record:      doc,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
		CompletedAt: rec.CompletedAt,
	}, nil
}

func toRecord(m *JobModel) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(m.Record, &rec); err != nil {
		return nil, fault.Wrap(fault.ClassInternal, fault.CodeInternal, "decode job record", err)
	}
	return &rec, nil
}

func (r *GormRepository) Create(ctx context.Context, rec *Record) error {
	model, err := toModel(rec)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicate(rec.ID)
	}
	return err
}

func (r *GormRepository) Get(ctx context.Context, id string) (*Record, error) {
	var model JobModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errNotFound(id)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return toRecord(&model)
}

func (r *GormRepository) Update(ctx context.Context, rec *Record) error {
	model, err := toModel(rec)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"state":        model.State,
		"progress":     model.Progress,
		"record":       model.Record,
		"updated_at":   model.UpdatedAt,
		"completed_at": model.CompletedAt,
	}
	result := r.db.WithContext(ctx).Model(&JobModel{}).Where("id = ?", rec.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound(rec.ID)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []JobModel
	result := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	out := make([]*Record, 0, len(models))
	for i := range models {
		rec, err := toRecord(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&JobModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound(id)
	}
	return nil
}

func (r *GormRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result := r.db.WithContext(ctx).
		Where("state IN ?", []string{string(StateReady), string(StateFailed)}).
		Where("updated_at < ?", cutoff).
		Delete(&JobModel{})
	return int(result.RowsAffected), result.Error
}
