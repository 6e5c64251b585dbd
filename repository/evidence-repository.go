package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvidenceFile is the stored reference to an uploaded document. The byte
// content lives in the evidence store; rows here are immutable once
// created and may be referenced by scores across several processes.
type EvidenceFile struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerId     int       `gorm:"not null;index"`
	Name        string    `gorm:"not null"`
	MimeType    string    `gorm:"not null"`
	Size        int64     `gorm:"not null"`
	StoragePath string    `gorm:"not null"`
	CreatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	Owner *User `gorm:"foreignKey:OwnerId"`
}

type EvidenceRepository struct {
	DB *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{DB: db}
}

func (r *EvidenceRepository) SaveFile(file *EvidenceFile) (*EvidenceFile, error) {
	result := r.DB.Save(file)
	if result.Error != nil {
		return nil, result.Error
	}
	return file, nil
}

func (r *EvidenceRepository) GetFileForOwner(fileId uuid.UUID, ownerId int) (*EvidenceFile, error) {
	var file EvidenceFile
	result := r.DB.First(&file, "id = ? AND owner_id = ?", fileId, ownerId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &file, nil
}

func (r *EvidenceRepository) GetFileById(fileId uuid.UUID) (*EvidenceFile, error) {
	var file EvidenceFile
	result := r.DB.First(&file, "id = ?", fileId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &file, nil
}

func (r *EvidenceRepository) GetFilesForOwner(ownerId int) ([]*EvidenceFile, error) {
	var files []*EvidenceFile
	result := r.DB.Order("created_at DESC").Find(&files, "owner_id = ?", ownerId)
	if result.Error != nil {
		return nil, result.Error
	}
	return files, nil
}

func (r *EvidenceRepository) DeleteFile(fileId uuid.UUID) error {
	result := r.DB.Delete(&EvidenceFile{}, "id = ?", fileId)
	return result.Error
}
