package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danielvega/portfolio-backend/pkg/db/models"
	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
	"github.com/danielvega/portfolio-backend/pkg/identity"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/outbox"
	"github.com/danielvega/portfolio-backend/pkg/pagination"
)

type testDB struct {
	conn *gorm.DB
}

func (d *testDB) DB() *gorm.DB { return d.conn }

func (d *testDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.conn.WithContext(ctx).Transaction(fn)
}

type fakeIdentity struct {
	nextID      string
	registerErr error
	loginErr    error
	deleted     []string
	registered  int
}

func (f *fakeIdentity) Register(ctx context.Context, params identity.RegisterParams) (string, error) {
	f.registered++
	if f.registerErr != nil {
		return "", f.registerErr
	}
	if f.nextID == "" {
		return "identity-" + uuid.NewString(), nil
	}
	return f.nextID, nil
}

func (f *fakeIdentity) Login(ctx context.Context, email, password string) (*identity.TokenPair, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &identity.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
}

func (f *fakeIdentity) Delete(ctx context.Context, identityID string) error {
	f.deleted = append(f.deleted, identityID)
	return nil
}

func newTestService(t *testing.T) (*Service, *testDB, *fakeIdentity) {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Role{}, &models.Permission{}, &models.OutboxMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db := &testDB{conn: conn}
	provider := &fakeIdentity{}
	writer := outbox.NewWriter(outbox.NewRepository(conn), nil)
	svc, err := NewService(ServiceParams{
		DB:       db,
		Identity: provider,
		Writer:   writer,
		Logger:   logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db, provider
}

func TestRegister_CommitsUserAndOutboxTogether(t *testing.T) {
	svc, db, provider := newTestService(t)
	provider.nextID = "identity-abc"
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Ana",
		LastName:  "Vega",
		Email:     "Ana@Example.com",
		Password:  "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Email != "ana@example.com" {
		t.Fatalf("email should be normalized, got %s", resp.Email)
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != models.RoleRegistered.Name {
		t.Fatalf("expected starter role, got %v", resp.Roles)
	}

	var user models.User
	if err := db.conn.Preload("Roles").First(&user, "email = ?", "ana@example.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.IdentityID != "identity-abc" {
		t.Fatalf("unexpected identity id %s", user.IdentityID)
	}

	var outboxRows []models.OutboxMessage
	if err := db.conn.Find(&outboxRows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(outboxRows) != 1 {
		t.Fatalf("expected 1 outbox row, got %d", len(outboxRows))
	}
	if outboxRows[0].EventType != "user.registered" {
		t.Fatalf("unexpected event type %s", outboxRows[0].EventType)
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, provider := newTestService(t)
	ctx := context.Background()

	req := RegisterRequest{FirstName: "Ana", LastName: "Vega", Email: "ana@example.com", Password: "s3cret-pass"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if provider.registered != 1 {
		t.Fatalf("duplicate email should be rejected before the provider call, got %d", provider.registered)
	}
}

func TestRegister_RollsBackIdentityOnTxFailure(t *testing.T) {
	svc, db, provider := newTestService(t)
	provider.nextID = "identity-dup"
	ctx := context.Background()

	// Occupy the identity id so the insert collides inside the transaction.
	existing := models.Register("Bea", "Diaz", "bea@example.com", "identity-dup", models.RoleRegistered)
	existing.ClearEvents()
	if err := db.conn.Create(existing).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	_, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Ana",
		LastName:  "Vega",
		Email:     "ana@example.com",
		Password:  "s3cret-pass",
	})
	if err == nil {
		t.Fatal("expected registration to fail")
	}
	if len(provider.deleted) != 1 || provider.deleted[0] != "identity-dup" {
		t.Fatalf("expected provider rollback, got %v", provider.deleted)
	}

	var count int64
	if err := db.conn.Model(&models.User{}).Where("email = ?", "ana@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatal("failed registration must not leave a user row")
	}
}

func TestUpdate_OptimisticConcurrency(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Ana", LastName: "Vega", Email: "ana@example.com", Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.Update(ctx, resp.ID, UpdateRequest{FirstName: "Anna", LastName: "Vega", Version: resp.Version})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FirstName != "Anna" {
		t.Fatalf("first name not updated, got %s", updated.FirstName)
	}
	if updated.Version != resp.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", resp.Version+1, updated.Version)
	}

	_, err = svc.Update(ctx, resp.ID, UpdateRequest{FirstName: "Stale", LastName: "Writer", Version: resp.Version})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConcurrency {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), uuid.New(), UpdateRequest{FirstName: "X", LastName: "Y"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_Pagination(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Register(ctx, RegisterRequest{
			FirstName: "User",
			LastName:  fmt.Sprintf("Num%d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			Password:  "s3cret-pass",
		})
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	first, err := svc.List(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(first.Items))
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}

	second, err := svc.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("expected 1 item on second page, got %d", len(second.Items))
	}
	if second.NextCursor != "" {
		t.Fatal("last page should carry no cursor")
	}

	seen := map[uuid.UUID]bool{}
	for _, item := range append(first.Items, second.Items...) {
		if seen[item.ID] {
			t.Fatalf("duplicate item %s across pages", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestDelete_HidesUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{
		FirstName: "Ana", LastName: "Vega", Email: "ana@example.com", Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.Delete(ctx, resp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.GetByID(ctx, resp.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	if err := svc.Delete(ctx, resp.ID); pkgerrors.As(err) == nil {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestLogin_PassesThroughTokens(t *testing.T) {
	svc, _, provider := newTestService(t)

	tokens, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken != "access" || tokens.ExpiresIn != 900 {
		t.Fatalf("unexpected tokens %+v", tokens)
	}

	provider.loginErr = errors.New("invalid credentials")
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "bad"}); err == nil {
		t.Fatal("expected login failure")
	}
}
