package models

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

type FileState string

const (
	FileStateActive  FileState = "active"
	FileStateTrashed FileState = "trashed"
	FileStatePurged  FileState = "purged"
)

var ErrInvalidTransition = errors.New("invalid file state transition")

// File is a user-owned document or folder. The remote storage columns are either
// all set or all null; they are only written through store.FileStore.SetRemote
// and store.FileStore.ClearRemote.
type File struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"index;not null" json:"userId"`
	Name               string     `gorm:"not null" json:"name"`
	StoragePath        string     `json:"-"`
	Size               int64      `json:"size"`
	MimeType           string     `json:"mimeType"`
	IsFolder           bool       `gorm:"default:false" json:"isFolder"`
	State              FileState  `gorm:"index;not null;default:active" json:"state"`
	TrashedAt          *time.Time `json:"trashedAt"`
	PurgedAt           *time.Time `json:"purgedAt"`
	IsBlockchainStored bool       `gorm:"default:false" json:"isBlockchainStored"`
	BlockchainProvider *string    `json:"blockchainProvider"`
	ContentHash        *string    `gorm:"index" json:"contentHash"`
	RemoteURL          *string    `json:"remoteUrl"`
	RemoteStoredAt     *time.Time `json:"remoteStoredAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	User               User       `gorm:"foreignKey:UserID" json:"-"`
}

// Extension returns the lower-cased file extension without the leading dot.
func (f File) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

func (f File) IsActive() bool {
	return f.State == FileStateActive || f.State == ""
}

// RemoteStateConsistent checks that the remote flag agrees with the provider and hash columns.
func (f File) RemoteStateConsistent() bool {
	return f.IsBlockchainStored == (f.BlockchainProvider != nil && f.ContentHash != nil)
}

// Trash moves an active file to the trash.
func (f *File) Trash(now time.Time) error {
	if !f.IsActive() {
		return ErrInvalidTransition
	}
	f.State = FileStateTrashed
	f.TrashedAt = &now
	return nil
}

// Restore moves a trashed file back to active.
func (f *File) Restore() error {
	if f.State != FileStateTrashed {
		return ErrInvalidTransition
	}
	f.State = FileStateActive
	f.TrashedAt = nil
	return nil
}

// PurgeDue reports whether a trashed file has been in the trash longer than retention.
func (f File) PurgeDue(now time.Time, retention time.Duration) bool {
	return f.State == FileStateTrashed && f.TrashedAt != nil && !f.TrashedAt.Add(retention).After(now)
}

// Purge marks a trashed file as purged. Callers delete the blob and attempts.
func (f *File) Purge(now time.Time) error {
	if f.State != FileStateTrashed {
		return ErrInvalidTransition
	}
	f.State = FileStatePurged
	f.PurgedAt = &now
	return nil
}
