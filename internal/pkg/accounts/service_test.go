package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseFox/internal/pkg/dbtest"
	"github.com/ManuelReschke/CourseFox/internal/pkg/identity"
	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

type fakeProvider struct {
	mu        sync.Mutex
	users     map[string]*identity.UserData
	pushed    map[string]identity.PublicMetadata
	pushError error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:  map[string]*identity.UserData{},
		pushed: map[string]identity.PublicMetadata{},
	}
}

func (f *fakeProvider) GetUser(_ context.Context, externalID string) (*identity.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[externalID]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (f *fakeProvider) UpdateUserMetadata(_ context.Context, externalID string, meta identity.PublicMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushError != nil {
		return f.pushError
	}
	f.pushed[externalID] = meta
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeProvider) {
	t.Helper()
	db := dbtest.Open(t)
	provider := newFakeProvider()
	return NewService(db, repository.NewUserRepository(db), provider, logger.Nop()), db, provider
}

func profile(externalID, email, name string) identity.Profile {
	return identity.Profile{ExternalID: externalID, Email: email, Name: name}
}

func TestCreatedIsIdempotentAndPushesMetadata(t *testing.T) {
	svc, db, provider := newTestService(t)
	ctx := context.Background()

	first, err := svc.Created(ctx, profile("user_1", "a@example.com", "Ada"))
	require.NoError(t, err)
	second, err := svc.Created(ctx, profile("user_1", "a@example.com", "Ada L"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada L", second.Name)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, identity.PublicMetadata{DBID: first.ID, Role: models.ROLE_USER}, provider.pushed["user_1"])
}

func TestUpdatedAppliesProfileAndRole(t *testing.T) {
	svc, _, provider := newTestService(t)
	ctx := context.Background()

	created, err := svc.Created(ctx, profile("user_1", "a@example.com", "Ada"))
	require.NoError(t, err)

	img := "https://img.example.com/a.png"
	p := profile("user_1", "new@example.com", "Ada Lovelace")
	p.ImageURL = &img
	updated, err := svc.Updated(ctx, p, models.ROLE_ADMIN)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, models.ROLE_ADMIN, updated.Role)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, models.ROLE_ADMIN, provider.pushed["user_1"].Role)

	updated, err = svc.Updated(ctx, p, "superuser")
	require.NoError(t, err)
	assert.Equal(t, models.ROLE_ADMIN, updated.Role, "unknown roles are ignored")
}

func TestUpdatedUnknownSubjectIsAnomaly(t *testing.T) {
	svc, db, provider := newTestService(t)

	_, err := svc.Updated(context.Background(), profile("ghost", "g@example.com", "Ghost"), "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, provider.pushed)
}

func TestDeletedRedactsAndKeepsPurchases(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	user, err := svc.Created(ctx, profile("user_1", "a@example.com", "Ada"))
	require.NoError(t, err)
	product := &models.Product{Name: "P", Description: "d", PriceInDollars: 10}
	require.NoError(t, db.Create(product).Error)
	purchase := &models.Purchase{UserID: user.ID, ProductID: product.ID, PaymentSessionID: "pay_1", PricePaidInCents: 1000}
	require.NoError(t, db.Omit("User", "Product").Create(purchase).Error)

	deleted, err := svc.Deleted(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, deleted)

	var stored models.User
	require.NoError(t, db.Unscoped().Where("id = ?", user.ID).First(&stored).Error)
	assert.Equal(t, models.RedactedEmail, stored.Email)
	assert.Equal(t, models.RedactedName, stored.Name)
	assert.Nil(t, stored.ImageURL)
	assert.True(t, stored.DeletedAt.Valid)

	var p models.Purchase
	require.NoError(t, db.Where("payment_session_id = ?", "pay_1").First(&p).Error)
	assert.Equal(t, user.ID, p.UserID)

	deleted, err = svc.Deleted(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete is a no-op")
}

func TestMetadataFailureIsSurfaced(t *testing.T) {
	svc, db, provider := newTestService(t)
	provider.pushError = errors.New("provider down")

	user, err := svc.Created(context.Background(), profile("user_1", "a@example.com", "Ada"))
	require.Error(t, err)
	require.NotNil(t, user)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "local write stays committed")
}

func TestSyncFromProvider(t *testing.T) {
	svc, _, provider := newTestService(t)
	provider.users["user_9"] = &identity.UserData{
		ID:                    "user_9",
		PrimaryEmailAddressID: "e1",
		Username:              "grace",
		PublicMetadata:        identity.PublicMetadata{Role: models.ROLE_ADMIN},
	}

	_, err := svc.SyncFromProvider(context.Background(), "user_9")
	assert.ErrorIs(t, err, apperror.ErrValidation, "no email")

	_, err = svc.SyncFromProvider(context.Background(), "missing")
	assert.Error(t, err)

	provider.users["user_9"].EmailAddresses = []identity.EmailAddress{{ID: "e1", EmailAddress: "grace@example.com"}}
	user, err := svc.SyncFromProvider(context.Background(), "user_9")
	require.NoError(t, err)
	assert.Equal(t, "grace", user.Name)
	assert.Equal(t, models.ROLE_ADMIN, user.Role)
	assert.Equal(t, identity.PublicMetadata{DBID: user.ID, Role: models.ROLE_ADMIN}, provider.pushed["user_9"])
}
