package service

import (
	"io"
	"os"
	"path/filepath"

	"facad/app_error"
	"facad/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EvidenceStore persists and serves evidence file bytes. The core only
// tracks the reference row; byte storage is a collaborator.
type EvidenceStore interface {
	Save(fileId uuid.UUID, content io.Reader) (path string, size int64, err error)
	Open(path string) (io.ReadCloser, error)
}

// DiskEvidenceStore stores evidence files under a root directory, one
// file per id. Files are immutable once written.
type DiskEvidenceStore struct {
	Root string
}

func NewDiskEvidenceStore(root string) *DiskEvidenceStore {
	return &DiskEvidenceStore{Root: root}
}

func (s *DiskEvidenceStore) Save(fileId uuid.UUID, content io.Reader) (string, int64, error) {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(s.Root, fileId.String())
	out, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer out.Close()
	size, err := io.Copy(out, content)
	if err != nil {
		return "", 0, err
	}
	return path, size, nil
}

func (s *DiskEvidenceStore) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type EvidenceService struct {
	evidenceRepository *repository.EvidenceRepository
	store              EvidenceStore
}

func NewEvidenceService(db *gorm.DB, store EvidenceStore) *EvidenceService {
	return &EvidenceService{
		evidenceRepository: repository.NewEvidenceRepository(db),
		store:              store,
	}
}

// UploadEvidence stores the content and creates the reference row owned
// by the requester.
func (s *EvidenceService) UploadEvidence(ownerId int, name string, mimeType string, content io.Reader) (*repository.EvidenceFile, error) {
	if name == "" {
		return nil, app_error.Validation("file name is required", nil)
	}
	fileId := uuid.New()
	path, size, err := s.store.Save(fileId, content)
	if err != nil {
		return nil, err
	}
	return s.evidenceRepository.SaveFile(&repository.EvidenceFile{
		Id:          fileId,
		OwnerId:     ownerId,
		Name:        name,
		MimeType:    mimeType,
		Size:        size,
		StoragePath: path,
	})
}

func (s *EvidenceService) ListEvidence(ownerId int) ([]*repository.EvidenceFile, error) {
	return s.evidenceRepository.GetFilesForOwner(ownerId)
}

func (s *EvidenceService) GetEvidence(ownerId int, fileId uuid.UUID) (*repository.EvidenceFile, error) {
	file, err := s.evidenceRepository.GetFileForOwner(fileId, ownerId)
	if err != nil {
		return nil, notFound(err, "evidence file")
	}
	return file, nil
}

// OpenEvidenceContent returns the stored metadata and a reader over the
// file bytes.
func (s *EvidenceService) OpenEvidenceContent(ownerId int, fileId uuid.UUID) (*repository.EvidenceFile, io.ReadCloser, error) {
	file, err := s.GetEvidence(ownerId, fileId)
	if err != nil {
		return nil, nil, err
	}
	reader, err := s.store.Open(file.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return file, reader, nil
}

func (s *EvidenceService) DeleteEvidence(ownerId int, fileId uuid.UUID) error {
	if _, err := s.GetEvidence(ownerId, fileId); err != nil {
		return err
	}
	return s.evidenceRepository.DeleteFile(fileId)
}
