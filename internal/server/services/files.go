package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/clouds-team/clouds/internal/dbx"
	"github.com/clouds-team/clouds/internal/logging"
	"github.com/clouds-team/clouds/internal/server/models"
	"github.com/clouds-team/clouds/internal/server/repositories/repomanager"
	"github.com/clouds-team/clouds/internal/server/storage"
)

// ListPageSize is the fixed page length of file listings.
const ListPageSize = 30

// OwnerLabelSelf is shown when the lineage owner of a file is the holder
// asking for the listing.
const OwnerLabelSelf = "You"

// OwnerLabelDeleted is shown when the lineage owner's account no longer
// exists.
const OwnerLabelDeleted = "Deleted user"

// FileService is the access and sharing ledger for encrypted blobs. Each
// holder has its own metadata row and wrapped key; after a transfer
// several rows reference one ciphertext object, which is deleted only
// when the last reference goes.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	logger      logging.Logger
	now         func() time.Time
}

func NewFileService(db *sql.DB, rm repomanager.RepositoryManager,
	store storage.ObjectStore, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: rm,
		store:       store,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateMetadata records a new file before its content exists. The row
// carries the sentinel storage key until content is attached. The
// declared size is charged against the holder's quota up front.
func (s *FileService) CreateMetadata(ctx context.Context, holderID int64, name string, sizeBytes int64, contentType string) (*models.File, error) {
	if name == "" {
		return nil, common.E(common.CodeValidation, "File name is required")
	}
	if sizeBytes < 0 {
		return nil, common.E(common.CodeValidation, "Invalid file size")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, holderID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.CodeNotFound, "Account not found")
		}
		return nil, common.Wrap(common.CodeInternal, "Failed to create file", err)
	}

	if user.UsedSpaceBytes+sizeBytes > user.LimitSpaceBytes {
		return nil, common.E(common.CodeValidation, "Not enough storage space")
	}

	var file *models.File

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		file, err = s.repomanager.Files(tx).Create(ctx, &models.File{
			UserID:      holderID,
			Name:        name,
			SizeBytes:   sizeBytes,
			ContentType: contentType,
			StorageKey:  models.StorageKeyNone,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return err
		}
		return s.repomanager.FileOwners(tx).Create(ctx, &models.FileOwner{
			FileID:      file.ID,
			OwnerUserID: holderID,
		})
	})
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Failed to create file", err)
	}

	return file, nil
}

// AttachContent uploads the ciphertext and completes the metadata row.
// The object goes to the store before the transaction commits; if the
// commit then fails the orphaned object is logged for reconciliation.
func (s *FileService) AttachContent(ctx context.Context, fileID, holderID int64, content []byte, wrappedKey, fileIV, fileTag, keyIV string) error {
	if wrappedKey == "" || fileIV == "" || fileTag == "" || keyIV == "" {
		return common.E(common.CodeValidation, "Missing encryption metadata")
	}

	file, err := s.holderFile(ctx, fileID, holderID)
	if err != nil {
		return err
	}
	if file.HasContent() {
		return common.E(common.CodeConflict, "File content already uploaded")
	}

	key := storage.NewStorageKey(file.ContentType, file.Name)

	if err := s.store.Put(ctx, key, content, file.ContentType); err != nil {
		return common.Wrap(common.CodeStorage, "Failed to upload file content", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).UpdateStorageKey(ctx, fileID, key); err != nil {
			return err
		}
		if err := s.repomanager.FileKeys(tx).Create(ctx, &models.FileKey{
			FileID:     fileID,
			UserID:     holderID,
			WrappedKey: wrappedKey,
			FileIV:     fileIV,
			FileTag:    fileTag,
			KeyIV:      keyIV,
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}
		return s.repomanager.Users(tx).AddUsedSpace(ctx, holderID, file.SizeBytes)
	})
	if err != nil {
		s.logger.Error(ctx, "uploaded object has no committed metadata, reconciliation required",
			"storage_key", key, "file_id", fileID, "error", err)
		return common.Wrap(common.CodeStorage, "Failed to save file content", err)
	}

	return nil
}

// Transfer gives another account access to a blob. The recipient gets its
// own metadata, key and owner rows referencing the same ciphertext: the
// caller re-wraps the file key for the recipient, while file IV and tag
// are copied unchanged. The lineage owner propagates from the source row.
func (s *FileService) Transfer(ctx context.Context, fileID, sourceHolderID int64, recipientEmail, newWrappedKey, newKeyIV string) error {
	if newWrappedKey == "" || newKeyIV == "" {
		return common.E(common.CodeValidation, "Missing encryption metadata")
	}

	file, err := s.holderFile(ctx, fileID, sourceHolderID)
	if err != nil {
		return err
	}
	if !file.HasContent() {
		return common.E(common.CodeNotFound, "File has no content to share")
	}

	srcKey, err := s.repomanager.FileKeys(s.db).GetByFileID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeNotFound, "File has no content to share")
		}
		return common.Wrap(common.CodeInternal, "Transfer failed", err)
	}

	recipient, err := s.repomanager.Users(s.db).GetByEmail(ctx, recipientEmail)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.E(common.CodeNotFound, "Recipient not found")
		}
		return common.Wrap(common.CodeInternal, "Transfer failed", err)
	}

	if recipient.UsedSpaceBytes+file.SizeBytes > recipient.LimitSpaceBytes {
		return common.E(common.CodeValidation, "Recipient does not have enough storage space")
	}

	lineageOwner := sourceHolderID
	if owner, err := s.repomanager.FileOwners(s.db).GetByFileID(ctx, fileID); err == nil {
		lineageOwner = owner.OwnerUserID
	} else if !errors.Is(err, common.ErrNotFound) {
		return common.Wrap(common.CodeInternal, "Transfer failed", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		newFile, err := s.repomanager.Files(tx).Create(ctx, &models.File{
			UserID:      recipient.ID,
			Name:        file.Name,
			SizeBytes:   file.SizeBytes,
			ContentType: file.ContentType,
			StorageKey:  file.StorageKey,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return err
		}
		if err := s.repomanager.FileKeys(tx).Create(ctx, &models.FileKey{
			FileID:     newFile.ID,
			UserID:     recipient.ID,
			WrappedKey: newWrappedKey,
			FileIV:     srcKey.FileIV,
			FileTag:    srcKey.FileTag,
			KeyIV:      newKeyIV,
			CreatedAt:  s.now(),
		}); err != nil {
			return err
		}
		if err := s.repomanager.FileOwners(tx).Create(ctx, &models.FileOwner{
			FileID:      newFile.ID,
			OwnerUserID: lineageOwner,
		}); err != nil {
			return err
		}
		return s.repomanager.Users(tx).AddUsedSpace(ctx, recipient.ID, file.SizeBytes)
	})
	if err != nil {
		return common.Wrap(common.CodeInternal, "Transfer failed", err)
	}

	return nil
}

// Delete removes the holder's rows and releases the quota. The ciphertext
// object is deleted only after the commit, and only when no other
// metadata row still references its storage key.
func (s *FileService) Delete(ctx context.Context, fileID, holderID int64) error {
	file, err := s.holderFile(ctx, fileID, holderID)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.FileKeys(tx).DeleteByFileID(ctx, fileID); err != nil {
			return err
		}
		if err := s.repomanager.FileOwners(tx).DeleteByFileID(ctx, fileID); err != nil {
			return err
		}
		if err := s.repomanager.Files(tx).Delete(ctx, fileID); err != nil {
			return err
		}
		if file.HasContent() {
			return s.repomanager.Users(tx).AddUsedSpace(ctx, holderID, -file.SizeBytes)
		}
		return nil
	})
	if err != nil {
		return common.Wrap(common.CodeInternal, "Failed to delete file", err)
	}

	if !file.HasContent() {
		return nil
	}

	remaining, err := s.repomanager.Files(s.db).CountByStorageKey(ctx, file.StorageKey)
	if err != nil {
		s.logger.Error(ctx, "reference count check failed, object not collected",
			"storage_key", file.StorageKey, "error", err)
		return nil
	}
	if remaining > 0 {
		return nil
	}

	if err := s.store.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Error(ctx, "orphaned object not deleted, reconciliation required",
			"storage_key", file.StorageKey, "error", err)
	}
	return nil
}

// DeleteAllForUser removes every file the user holds, applying the same
// reference-counted object collection as single deletes.
func (s *FileService) DeleteAllForUser(ctx context.Context, userID int64) error {
	files, err := s.repomanager.Files(s.db).ListAllByUser(ctx, userID)
	if err != nil {
		return common.Wrap(common.CodeInternal, "Failed to delete files", err)
	}
	for i := range files {
		if err := s.Delete(ctx, files[i].ID, userID); err != nil {
			return err
		}
	}
	return nil
}

// FileListItem is one row of a listing. Owner is the lineage owner's
// display name, or "You" for the holder's own uploads.
type FileListItem struct {
	ID          int64
	Name        string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
	Owner       string
	HasContent  bool
}

// FileListResult is one page of a holder's files.
type FileListResult struct {
	Items   []FileListItem
	Total   int
	HasMore bool
}

// List returns the given page (1-based) of the holder's files, newest
// first.
func (s *FileService) List(ctx context.Context, holderID int64, page int) (*FileListResult, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * ListPageSize

	fileRepo := s.repomanager.Files(s.db)

	total, err := fileRepo.CountByUser(ctx, holderID)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Failed to list files", err)
	}

	files, err := fileRepo.ListByUserPage(ctx, holderID, offset, ListPageSize)
	if err != nil {
		return nil, common.Wrap(common.CodeInternal, "Failed to list files", err)
	}

	items := make([]FileListItem, 0, len(files))
	ownerNames := map[int64]string{holderID: OwnerLabelSelf}

	for i := range files {
		f := &files[i]

		ownerID := holderID
		if owner, err := s.repomanager.FileOwners(s.db).GetByFileID(ctx, f.ID); err == nil {
			ownerID = owner.OwnerUserID
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, common.Wrap(common.CodeInternal, "Failed to list files", err)
		}

		label, ok := ownerNames[ownerID]
		if !ok {
			owner, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return nil, common.Wrap(common.CodeInternal, "Failed to list files", err)
			}
			label = OwnerLabelDeleted
			if err == nil {
				label = owner.DisplayName()
			}
			ownerNames[ownerID] = label
		}

		items = append(items, FileListItem{
			ID:          f.ID,
			Name:        f.Name,
			SizeBytes:   f.SizeBytes,
			ContentType: f.ContentType,
			CreatedAt:   f.CreatedAt,
			Owner:       label,
			HasContent:  f.HasContent(),
		})
	}

	return &FileListResult{
		Items:   items,
		Total:   total,
		HasMore: offset+len(files) < total,
	}, nil
}

// FileDetails carries everything a client needs to decrypt a download:
// the wrapped key material exactly as attached, plus the lineage owner's
// public key when the file arrived by transfer.
type FileDetails struct {
	Name           string
	SizeBytes      int64
	ContentType    string
	WrappedKey     string
	FileIV         string
	FileTag        string
	KeyIV          string
	OwnerPublicKey string
}

// DetailsForDownload returns the decryption material for a held file.
func (s *FileService) DetailsForDownload(ctx context.Context, fileID, holderID int64) (*FileDetails, error) {
	file, err := s.holderFile(ctx, fileID, holderID)
	if err != nil {
		return nil, err
	}

	key, err := s.repomanager.FileKeys(s.db).GetByFileID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.CodeNotFound, "File has no content")
		}
		return nil, common.Wrap(common.CodeInternal, "Failed to load file details", err)
	}

	details := &FileDetails{
		Name:        file.Name,
		SizeBytes:   file.SizeBytes,
		ContentType: file.ContentType,
		WrappedKey:  key.WrappedKey,
		FileIV:      key.FileIV,
		FileTag:     key.FileTag,
		KeyIV:       key.KeyIV,
	}

	if owner, err := s.repomanager.FileOwners(s.db).GetByFileID(ctx, fileID); err == nil && owner.OwnerUserID != holderID {
		cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, owner.OwnerUserID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, common.Wrap(common.CodeInternal, "Failed to load file details", err)
		}
		if err == nil {
			details.OwnerPublicKey = cred.PublicKey
		}
	} else if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, common.Wrap(common.CodeInternal, "Failed to load file details", err)
	}

	return details, nil
}

// DownloadContent returns the ciphertext bytes of a held file.
func (s *FileService) DownloadContent(ctx context.Context, fileID, holderID int64) ([]byte, error) {
	file, err := s.holderFile(ctx, fileID, holderID)
	if err != nil {
		return nil, err
	}
	if !file.HasContent() {
		return nil, common.E(common.CodeNotFound, "File has no content")
	}

	data, err := s.store.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, common.Wrap(common.CodeStorage, "Failed to download file content", err)
	}
	return data, nil
}

// holderFile loads a file and enforces that the caller holds it.
func (s *FileService) holderFile(ctx context.Context, fileID, holderID int64) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.E(common.CodeNotFound, "File not found")
		}
		return nil, common.Wrap(common.CodeInternal, "Failed to load file", err)
	}
	if file.UserID != holderID {
		return nil, common.E(common.CodeUnauthorized, "Access denied")
	}
	return file, nil
}
