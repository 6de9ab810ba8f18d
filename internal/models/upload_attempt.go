package models

import "time"

type AttemptStatus string

const (
	AttemptPending    AttemptStatus = "pending"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
	AttemptSuperseded AttemptStatus = "superseded"
)

// UploadAttempt records one try at copying a file to a remote provider.
//
// The partial unique index on (file_id, provider) where status = 'success'
// guarantees at most one successful row per file and provider. A later
// successful upload demotes the earlier row to superseded.
type UploadAttempt struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UUID            string        `gorm:"uniqueIndex;not null" json:"uuid"`
	FileID          uint          `gorm:"not null;index;uniqueIndex:idx_upload_attempts_one_success,where:status = 'success'" json:"fileId"`
	UserID          uint          `gorm:"not null;index" json:"userId"`
	Provider        string        `gorm:"not null;uniqueIndex:idx_upload_attempts_one_success" json:"provider"`
	Status          AttemptStatus `gorm:"not null;index;default:pending" json:"status"`
	ContentHash     *string       `json:"contentHash"`
	RemoteURL       *string       `json:"remoteUrl"`
	RemoteSize      int64         `json:"remoteSize"`
	RemoteTimestamp *time.Time    `json:"remoteTimestamp"`
	ErrorMessage    *string       `json:"errorMessage"`
	RawResponse     []byte        `json:"-"`
	StartedAt       time.Time     `gorm:"not null" json:"startedAt"`
	CompletedAt     *time.Time    `gorm:"index" json:"completedAt"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	File            File          `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// CountsTowardQuota reports whether the attempt delivered content to a provider.
func (a UploadAttempt) CountsTowardQuota() bool {
	return a.Status == AttemptSuccess || a.Status == AttemptSuperseded
}
