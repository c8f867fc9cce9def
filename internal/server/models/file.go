package models

import "time"

// StorageKeyNone is the sentinel key carried by metadata rows whose
// ciphertext has not been uploaded yet (two-phase creation).
const StorageKeyNone = "none"

// File is one holder's metadata row for a stored blob. After a transfer
// several File rows share one StorageKey; the ciphertext itself is never
// duplicated.
type File struct {
	ID          int64
	UserID      int64
	Name        string
	SizeBytes   int64
	ContentType string
	StorageKey  string
	CreatedAt   time.Time
}

// HasContent reports whether ciphertext has been attached.
func (f *File) HasContent() bool {
	return f.StorageKey != "" && f.StorageKey != StorageKeyNone
}

// FileKey is the holder-scoped wrapped symmetric key for one File row.
// FileIV and FileTag describe the shared ciphertext and are copied
// unchanged on transfer; WrappedKey and KeyIV are per holder.
type FileKey struct {
	ID         int64
	FileID     int64
	UserID     int64
	WrappedKey string
	FileIV     string
	FileTag    string
	KeyIV      string
	CreatedAt  time.Time
}

// FileOwner records the lineage origin of a File row: the account that
// originally created the blob, propagated unchanged through transfers.
type FileOwner struct {
	ID          int64
	FileID      int64
	OwnerUserID int64
}
