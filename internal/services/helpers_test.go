package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/database"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/providers"
	"github.com/securedocs/backend/internal/storage"
	"github.com/securedocs/backend/internal/store"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const mb = 1024 * 1024

type fakeClient struct {
	name       string
	permanent  bool
	configured bool
	maxSize    int64

	uploadErr error
	removeErr error
	onUpload  func()

	mu      sync.Mutex
	uploads int
	removes int
	meta    providers.UploadMetadata
	body    string
}

func newFakeClient(name string) *fakeClient {
	return &fakeClient{name: name, configured: true, maxSize: 100 * mb}
}

func (f *fakeClient) Upload(_ context.Context, r io.Reader, meta providers.UploadMetadata) (*providers.Receipt, error) {
	body, _ := io.ReadAll(r)

	f.mu.Lock()
	f.uploads++
	n := f.uploads
	f.meta = meta
	f.body = string(body)
	f.mu.Unlock()

	if f.onUpload != nil {
		f.onUpload()
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}

	hash := fmt.Sprintf("%s-hash-%d", f.name, n)
	return &providers.Receipt{
		ContentHash: hash,
		RemoteURL:   f.GatewayURL(hash),
		Size:        int64(len(body)),
		Raw:         []byte(`{"id":"` + hash + `"}`),
	}, nil
}

func (f *fakeClient) Fetch(_ context.Context, contentHash string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func (f *fakeClient) Remove(_ context.Context, contentHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return false, f.removeErr
	}
	return true, nil
}

func (f *fakeClient) TestConnection(context.Context) providers.ConnectionStatus {
	return providers.ConnectionStatus{OK: f.configured}
}

func (f *fakeClient) IsConfigured() bool { return f.configured }
func (f *fakeClient) MaxFileSize() int64 { return f.maxSize }
func (f *fakeClient) Name() string       { return f.name }
func (f *fakeClient) Permanent() bool    { return f.permanent }
func (f *fakeClient) GatewayURL(h string) string {
	return "https://gateway.test/" + f.name + "/" + h
}

type harness struct {
	t           *testing.T
	db          *gorm.DB
	cfg         config.BlockchainConfig
	files       *store.FileStore
	users       *store.UserStore
	ledger      *store.AttemptLedger
	blobs       *storage.LocalStore
	registry    *providers.Registry
	pinata      *fakeClient
	arweave     *fakeClient
	entitlement *Entitlement
	validator   *PreflightValidator
	coordinator *UploadCoordinator
	removal     *RemovalCoordinator
	user        *models.User
}

func newHarness(t *testing.T, configure ...func(*config.BlockchainConfig)) *harness {
	t.Helper()

	db, err := database.NewInMemorySQLite()
	require.NoError(t, err)

	cfg := config.BlockchainConfig{
		DefaultProvider:    "pinata",
		RequirePremium:     true,
		MaxMonthlyUploads:  100,
		AllowedExtensions:  []string{"pdf", "txt", "png"},
		TransactionRetries: 3,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	h := &harness{
		t:       t,
		db:      db,
		cfg:     cfg,
		files:   store.NewFileStore(db, cfg.TransactionRetries),
		users:   store.NewUserStore(db),
		ledger:  store.NewAttemptLedger(db, cfg.TransactionRetries),
		blobs:   storage.NewLocalStore(t.TempDir()),
		pinata:  newFakeClient("pinata"),
		arweave: newFakeClient("arweave"),
	}
	h.arweave.permanent = true
	h.arweave.maxSize = 500 * mb

	h.registry, err = providers.NewStaticRegistry(h.pinata, h.arweave)
	require.NoError(t, err)

	log := logger.NewNopLogger()
	h.entitlement = NewEntitlement(cfg.RequirePremium, nil, log)
	h.validator = NewPreflightValidator(cfg, h.registry, h.blobs, h.ledger, h.entitlement, log)
	h.coordinator = NewUploadCoordinator(h.registry, h.files, h.users, h.ledger, h.blobs, h.entitlement, log)
	h.removal = NewRemovalCoordinator(h.registry, h.files, log)

	h.user = h.createUser("0x1111111111111111111111111111111111111111", true)
	return h
}

func (h *harness) createUser(wallet string, premium bool) *models.User {
	h.t.Helper()
	user := &models.User{WalletAddress: wallet, IsPremium: premium}
	require.NoError(h.t, h.users.Create(context.Background(), user))
	return user
}

// createFile stores a small blob but records size as the file's size, so
// large-file rules can be exercised without large test data.
func (h *harness) createFile(name string, size int64) *models.File {
	h.t.Helper()
	ctx := context.Background()

	key := fmt.Sprintf("users/%d/%s", h.user.ID, name)
	_, err := h.blobs.Save(ctx, key, strings.NewReader("content of "+name))
	require.NoError(h.t, err)

	file := &models.File{
		UserID:      h.user.ID,
		Name:        name,
		StoragePath: key,
		Size:        size,
		MimeType:    "application/octet-stream",
	}
	require.NoError(h.t, h.files.Create(ctx, file))
	return file
}

func (h *harness) reload(file *models.File) *models.File {
	h.t.Helper()
	fresh, err := h.files.GetByID(context.Background(), file.ID)
	require.NoError(h.t, err)
	return fresh
}

func (h *harness) attempts(file *models.File) []models.UploadAttempt {
	h.t.Helper()
	attempts, err := h.ledger.ListForFile(context.Background(), file.ID)
	require.NoError(h.t, err)
	return attempts
}

func (h *harness) countAttempts() int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.db.Model(&models.UploadAttempt{}).Count(&n).Error)
	return n
}
