package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/securedocs/backend/pkg/units"
)

var (
	ErrChunkSessionNotFound = errors.New("chunked upload not found")
	ErrChunkIndexInvalid    = errors.New("chunk index out of range")
	ErrChunksMissing        = errors.New("not all chunks received")
	ErrChunkedSizeMismatch  = errors.New("assembled size does not match declared size")
	ErrChunkedTooLarge      = errors.New("chunked upload exceeds the upload limit")
)

const (
	ChunkStatusInitialized = "initialized"
	ChunkStatusInProgress  = "inProgress"
	ChunkStatusComplete    = "allChunksReceived"
)

// ChunkStatus is a snapshot of a chunked upload.
type ChunkStatus struct {
	UploadID       string    `json:"uploadId"`
	Filename       string    `json:"filename"`
	Status         string    `json:"status"`
	TotalSize      int64     `json:"totalSize"`
	TotalChunks    int       `json:"totalChunks"`
	UploadedChunks int       `json:"uploadedChunks"`
	Progress       float64   `json:"progress"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type chunkSession struct {
	id          string
	userID      uint
	filename    string
	mimeType    string
	totalSize   int64
	totalChunks int
	received    map[int]int64
	dir         string
	completing  bool
	createdAt   time.Time
	updatedAt   time.Time
}

// receivedExcept sums the bytes received for every chunk but index.
func (s *chunkSession) receivedExcept(index int) int64 {
	var total int64
	for i, n := range s.received {
		if i != index {
			total += n
		}
	}
	return total
}

func (s *chunkSession) status() *ChunkStatus {
	status := ChunkStatusInProgress
	switch len(s.received) {
	case 0:
		status = ChunkStatusInitialized
	case s.totalChunks:
		status = ChunkStatusComplete
	}
	return &ChunkStatus{
		UploadID:       s.id,
		Filename:       s.filename,
		Status:         status,
		TotalSize:      s.totalSize,
		TotalChunks:    s.totalChunks,
		UploadedChunks: len(s.received),
		Progress:       float64(len(s.received)) / float64(s.totalChunks) * 100,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
	}
}

// ChunkSessions assembles files sent in chunks and hands them to the
// FileManager once every chunk has arrived. Sessions live in memory; chunk data
// lives under root until the upload completes or expires.
type ChunkSessions struct {
	root    string
	files   *FileManager
	ttl     time.Duration
	maxSize int64
	log     logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*chunkSession
}

func NewChunkSessions(root string, files *FileManager, ttl time.Duration, maxSize int64, log logger.Logger) *ChunkSessions {
	if root == "" {
		root = filepath.Join(os.TempDir(), "securedocs-chunks")
	}
	return &ChunkSessions{
		root:     root,
		files:    files,
		ttl:      ttl,
		maxSize:  maxSize,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*chunkSession),
	}
}

// Init opens a new chunked upload for userID.
func (s *ChunkSessions) Init(userID uint, filename, mimeType string, totalSize int64, totalChunks int) (*ChunkStatus, error) {
	if totalChunks < 1 {
		return nil, fmt.Errorf("%w: totalChunks must be at least 1", ErrChunkIndexInvalid)
	}
	if s.maxSize > 0 && totalSize > s.maxSize {
		return nil, fmt.Errorf("%w: %s > %s", ErrChunkedTooLarge, units.FormatBytes(totalSize), units.FormatBytes(s.maxSize))
	}

	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	now := s.now()
	session := &chunkSession{
		id:          id,
		userID:      userID,
		filename:    filepath.Base(filename),
		mimeType:    mimeType,
		totalSize:   totalSize,
		totalChunks: totalChunks,
		received:    make(map[int]int64),
		dir:         dir,
		createdAt:   now,
		updatedAt:   now,
	}

	s.mu.Lock()
	s.sessions[id] = session
	status := session.status()
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"upload_id":    id,
		"user_id":      userID,
		"filename":     session.filename,
		"total_size":   units.FormatBytes(totalSize),
		"total_chunks": totalChunks,
	}).Info("Initialized chunked upload")

	return status, nil
}

// lookup returns the session only if it belongs to userID. Caller holds s.mu.
func (s *ChunkSessions) lookup(userID uint, id string) (*chunkSession, error) {
	session, ok := s.sessions[id]
	if !ok || session.userID != userID || session.completing {
		return nil, ErrChunkSessionNotFound
	}
	return session, nil
}

// PutChunk stores chunk index. Re-sending a chunk overwrites the earlier copy.
// Data is staged under a temporary name and only renamed into place while the
// session is still accepting chunks.
func (s *ChunkSessions) PutChunk(userID uint, id string, index int, content io.Reader) (*ChunkStatus, error) {
	s.mu.Lock()
	session, err := s.lookup(userID, id)
	var budget int64 = -1
	if err == nil && s.maxSize > 0 {
		budget = s.maxSize - session.receivedExcept(index)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= session.totalChunks {
		return nil, fmt.Errorf("%w: must be between 0 and %d", ErrChunkIndexInvalid, session.totalChunks-1)
	}

	dst, err := os.CreateTemp(session.dir, fmt.Sprintf("chunk_%d.*.part", index))
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk file: %w", err)
	}
	staged := dst.Name()
	defer os.Remove(staged)

	src := content
	if budget >= 0 {
		src = io.LimitReader(content, budget+1)
	}
	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save chunk data: %w", err)
	}
	if budget >= 0 && written > budget {
		return nil, fmt.Errorf("%w: chunks exceed %s", ErrChunkedTooLarge, units.FormatBytes(s.maxSize))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(userID, id); err != nil {
		return nil, err
	}
	if s.maxSize > 0 && session.receivedExcept(index)+written > s.maxSize {
		return nil, fmt.Errorf("%w: chunks exceed %s", ErrChunkedTooLarge, units.FormatBytes(s.maxSize))
	}
	if err := os.Rename(staged, filepath.Join(session.dir, fmt.Sprintf("chunk_%d", index))); err != nil {
		return nil, fmt.Errorf("failed to save chunk data: %w", err)
	}
	session.received[index] = written
	session.updatedAt = s.now()

	return session.status(), nil
}

func (s *ChunkSessions) Status(userID uint, id string) (*ChunkStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	return session.status(), nil
}

// Complete concatenates the chunks in order and stores the result as a new
// file. The session is discarded on success.
func (s *ChunkSessions) Complete(ctx context.Context, userID uint, id string) (*models.File, error) {
	s.mu.Lock()
	session, err := s.lookup(userID, id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(session.received) != session.totalChunks {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: got %d of %d chunks", ErrChunksMissing, len(session.received), session.totalChunks)
	}
	var assembled int64
	for _, n := range session.received {
		assembled += n
	}
	if session.totalSize > 0 && assembled != session.totalSize {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrChunkedSizeMismatch, assembled, session.totalSize)
	}
	if s.maxSize > 0 && assembled > s.maxSize {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s > %s", ErrChunkedTooLarge, units.FormatBytes(assembled), units.FormatBytes(s.maxSize))
	}
	session.completing = true
	s.mu.Unlock()

	file, err := s.assemble(ctx, session)
	if err != nil {
		s.mu.Lock()
		session.completing = false
		s.mu.Unlock()
		return nil, err
	}

	s.discard(session)
	return file, nil
}

func (s *ChunkSessions) assemble(ctx context.Context, session *chunkSession) (*models.File, error) {
	readers := make([]io.Reader, 0, session.totalChunks)
	for i := 0; i < session.totalChunks; i++ {
		f, err := os.Open(filepath.Join(session.dir, fmt.Sprintf("chunk_%d", i)))
		if err != nil {
			return nil, fmt.Errorf("failed to open chunk %d: %w", i, err)
		}
		defer f.Close()
		readers = append(readers, f)
	}

	return s.files.Store(ctx, session.userID, session.filename, session.mimeType, io.MultiReader(readers...))
}

func (s *ChunkSessions) discard(session *chunkSession) {
	s.mu.Lock()
	delete(s.sessions, session.id)
	s.mu.Unlock()

	if err := os.RemoveAll(session.dir); err != nil {
		s.log.WithError(err).WithField("upload_id", session.id).Warning("Failed to remove chunk directory")
	}
}

// CleanupExpired drops sessions that have not received data within the TTL
// and returns how many were removed.
func (s *ChunkSessions) CleanupExpired() int {
	threshold := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*chunkSession
	for _, session := range s.sessions {
		if !session.completing && session.updatedAt.Before(threshold) {
			expired = append(expired, session)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		s.discard(session)
		s.log.WithField("upload_id", session.id).Info("Cleaned up expired chunked upload")
	}
	return len(expired)
}
