package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/damoang/angple-bugreport/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound 리포트 없음
var ErrNotFound = errors.New("bug report not found")

// ListFilter narrows an admin listing
type ListFilter struct {
	Page        int
	Limit       int
	SourceApp   string
	ErrorSource domain.ErrorSource
	UserID      string
}

func (f ListFilter) apply(db *gorm.DB) *gorm.DB {
	if f.SourceApp != "" {
		db = db.Where("source_app = ?", f.SourceApp)
	}
	if f.ErrorSource != "" {
		db = db.Where("error_source = ?", f.ErrorSource)
	}
	if f.UserID != "" {
		db = db.Where("user_id = ?", f.UserID)
	}
	return db
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.Limit
}

// Repository persists bug reports
type Repository interface {
	// Create inserts r; false means a report with the same report_id already exists
	Create(ctx context.Context, r *Record) (bool, error)
	FindByReportID(ctx context.Context, reportID string) (*Record, error)
	List(ctx context.Context, f ListFilter) ([]Record, int64, error)
}

// GormRepository stores reports in MySQL (sqlite in tests)
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository creates a new GormRepository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the bug_reports table
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Record{})
}

// Create inserts rec, ignoring a duplicate report_id
func (r *GormRepository) Create(ctx context.Context, rec *Record) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "report_id"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("bug report insert failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindByReportID returns the report with the client generated ID
func (r *GormRepository) FindByReportID(ctx context.Context, reportID string) (*Record, error) {
	var rec Record
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns a page of reports, newest first, without screenshot blobs
func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]Record, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Scopes(f.apply).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	var records []Record
	if err := r.db.WithContext(ctx).Scopes(f.apply).
		Omit("screenshot").
		Order("created_at DESC, id DESC").
		Limit(f.Limit).
		Offset(f.offset()).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}
	return records, total, nil
}
