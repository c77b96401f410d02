package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbchat/internal/model"
	"kbchat/internal/pkg/pdfextract"
	"kbchat/internal/repository"
)

var ErrDocumentNotFound = errors.New("document not found")

const previewMaxRunes = 500

// ObjectStore is the binary blob collaborator.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
	URL(key string) string
}

// IngestPublisher detaches an ingestion trigger onto the queue.
type IngestPublisher interface {
	Publish(ctx context.Context, job model.IngestJob) error
}

// IngestionBackend starts an ingestion job synchronously, for the explicit
// resync path where trigger failures must surface.
type IngestionBackend interface {
	StartIngestionJob(ctx context.Context, knowledgeBaseID, dataSourceID, clientToken string) (string, error)
}

// DocumentService owns the document registry and the synchronization
// protocol between the document set and the external index.
type DocumentService struct {
	docRepo         *repository.DocumentRepository
	store           ObjectStore
	publisher       IngestPublisher
	backend         IngestionBackend
	knowledgeBaseID string
	dataSourceID    string
	presignTTL      time.Duration
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	store ObjectStore,
	publisher IngestPublisher,
	backend IngestionBackend,
	knowledgeBaseID, dataSourceID string,
	presignTTL time.Duration,
) *DocumentService {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &DocumentService{
		docRepo:         docRepo,
		store:           store,
		publisher:       publisher,
		backend:         backend,
		knowledgeBaseID: knowledgeBaseID,
		dataSourceID:    dataSourceID,
		presignTTL:      presignTTL,
	}
}

// UploadInput carries one uploaded blob with its declared content type.
type UploadInput struct {
	UserID      string
	FileName    string
	ContentType string
	Body        io.Reader
}

// Upload stores the blob under a random-token key, triggers ingestion
// best-effort, and only then writes the registry row. A failed trigger
// leaves the index stale until the next mutating event; the upload still
// succeeds.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == "" || strings.TrimSpace(input.FileName) == "" || input.Body == nil {
		return nil, ErrInvalidInput
	}
	fileName := strings.TrimSpace(input.FileName)

	content, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString() + "_" + fileName
	if err := s.store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), input.ContentType); err != nil {
		return nil, err
	}

	s.triggerIngestion(ctx, "document-upload")

	doc := &model.Document{
		ID:          uuid.NewString(),
		UserID:      input.UserID,
		FileName:    fileName,
		FileURL:     s.store.URL(key),
		ObjectKey:   key,
		ContentType: input.ContentType,
		Preview:     extractPreview(fileName, input.ContentType, content),
		UploadedAt:  time.Now(),
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the blob and the registry row, then resynchronizes the
// index with a full re-ingestion. The re-ingestion is skipped entirely when
// the bucket is now empty. Storage and registry failures fail the delete; a
// trigger failure alone does not.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	if userID == "" || documentID == "" {
		return ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := s.store.Delete(ctx, doc.ObjectKey); err != nil {
		return err
	}
	if err := s.docRepo.DeleteByIDAndUserID(doc.ID, userID); err != nil {
		return err
	}

	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	s.triggerIngestion(ctx, "document-delete")
	return nil
}

// PresignURL mints a time-limited read URL for the stored blob.
func (s *DocumentService) PresignURL(ctx context.Context, userID, documentID string) (string, error) {
	if userID == "" || documentID == "" {
		return "", ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", ErrDocumentNotFound
	}
	return s.store.PresignGet(ctx, doc.ObjectKey, s.presignTTL)
}

// List returns the user's documents, newest first.
func (s *DocumentService) List(userID string) ([]model.Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

// Resync starts an ingestion job synchronously and surfaces any failure.
// This is the explicit repair path, unlike the best-effort triggers.
func (s *DocumentService) Resync(ctx context.Context) (string, error) {
	jobID, err := s.backend.StartIngestionJob(ctx, s.knowledgeBaseID, s.dataSourceID, uuid.NewString())
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *DocumentService) triggerIngestion(ctx context.Context, reason string) {
	job := model.IngestJob{
		KnowledgeBaseID: s.knowledgeBaseID,
		DataSourceID:    s.dataSourceID,
		ClientToken:     uuid.NewString(),
		Reason:          reason,
		RequestedAt:     time.Now(),
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		log.Printf("trigger ingestion failed (reason=%s): %v", reason, err)
	}
}

func extractPreview(fileName, contentType string, content []byte) string {
	if contentType != "application/pdf" && !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return ""
	}
	text, err := pdfextract.ExtractText(bytes.NewReader(content))
	if err != nil {
		log.Printf("extract pdf preview failed for %s: %v", fileName, err)
		return ""
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > previewMaxRunes {
		runes = runes[:previewMaxRunes]
	}
	return string(runes)
}
