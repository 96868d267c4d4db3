package repository

import (
	"fmt"

	"video_migrate_service/internal/migration/domain"
	errprocess "video_migrate_service/pkg/err"

	"gorm.io/gorm"
)

// MigrationRecordRepo definition migration history persistence
type MigrationRecordRepo interface {
	Create(record *domain.MigrationRecord) error
	Update(record *domain.MigrationRecord) error
	GetByID(id uint) (*domain.MigrationRecord, error)
	ListRecent(limit int) ([]domain.MigrationRecord, error)
}

type migrationRecordRepo struct {
	db *gorm.DB
}

// NewMigrationRecordRepo create a MigrationRecordRepo
func NewMigrationRecordRepo(db *gorm.DB) MigrationRecordRepo {
	return &migrationRecordRepo{db: db}
}

func (r *migrationRecordRepo) Create(record *domain.MigrationRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return errprocess.Set(fmt.Sprintf("create migration record failed : %v", err))
	}
	return nil
}

func (r *migrationRecordRepo) Update(record *domain.MigrationRecord) error {
	if err := r.db.Save(record).Error; err != nil {
		return errprocess.Set(fmt.Sprintf("recordID[%d] update migration record failed : %v", record.ID, err))
	}
	return nil
}

func (r *migrationRecordRepo) GetByID(id uint) (*domain.MigrationRecord, error) {
	var record domain.MigrationRecord
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, errprocess.Set(fmt.Sprintf("recordID[%d] find migration record failed : %v", id, err))
	}
	return &record, nil
}

func (r *migrationRecordRepo) ListRecent(limit int) ([]domain.MigrationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []domain.MigrationRecord
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, errprocess.Set(fmt.Sprintf("list migration records failed : %v", err))
	}
	return records, nil
}
