package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"arthub/internal/model"
	"arthub/internal/repository"
	"arthub/internal/store"
)

// mockAccountRepository lets each test define lookups per table.
type mockAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	legacy   map[string]map[string]map[string]any // table -> uid -> record
	legacyFn func(table string) error

	saveCalls []model.Account
}

func (m *mockAccountRepository) Get(ctx context.Context, userID string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[userID]; ok {
		return a, nil
	}
	return nil, model.ErrAccountNotFound
}

func (m *mockAccountRepository) Save(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls = append(m.saveCalls, *account)
	return nil
}

func (m *mockAccountRepository) FindByName(ctx context.Context, name string) (*model.Account, error) {
	return nil, model.ErrAccountNotFound
}

func (m *mockAccountRepository) GetLegacy(ctx context.Context, table, userID string) (map[string]any, bool, error) {
	if m.legacyFn != nil {
		if err := m.legacyFn(table); err != nil {
			return nil, false, err
		}
	}
	record, ok := m.legacy[table][userID]
	return record, ok, nil
}

func TestAccountService_UnifiedAccountWins(t *testing.T) {
	repo := &mockAccountRepository{
		accounts: map[string]*model.Account{"u1": {ID: "u1", Role: model.RoleArtist}},
		legacyFn: func(table string) error {
			t.Errorf("legacy table %s read for a migrated user", table)
			return nil
		},
	}
	svc := NewAccountService(repo)

	role, err := svc.Role(context.Background(), model.Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Role failed: %v", err)
	}
	if role != model.RoleArtist {
		t.Errorf("role = %q, want artist", role)
	}
}

func TestAccountService_LegacyPrecedenceAndMigration(t *testing.T) {
	repo := &mockAccountRepository{
		legacy: map[string]map[string]map[string]any{
			model.LegacyArtistTable:  {"u1": {"name": "Ana"}},
			model.LegacyAdminTable:   {"u1": {"email": "ana@arthub.test"}},
			model.LegacyVisitorTable: {"u2": {"name": "Bo"}},
		},
	}
	svc := NewAccountService(repo)
	ctx := context.Background()

	role, err := svc.Role(ctx, model.Identity{UserID: "u1", Email: "token@arthub.test"})
	if err != nil {
		t.Fatalf("Role failed: %v", err)
	}
	if role != model.RoleAdmin {
		t.Errorf("role = %q, want admin (admin beats artist)", role)
	}

	role, _ = svc.Role(ctx, model.Identity{UserID: "u2"})
	if role != model.RoleVisitor {
		t.Errorf("role = %q, want visitor", role)
	}

	if len(repo.saveCalls) != 2 {
		t.Fatalf("Save called %d times, want 2", len(repo.saveCalls))
	}
	if got := repo.saveCalls[0]; got.ID != "u1" || got.Role != model.RoleAdmin || got.Email != "ana@arthub.test" {
		t.Errorf("migrated = %+v", got)
	}
}

func TestAccountService_UnknownUser(t *testing.T) {
	svc := NewAccountService(&mockAccountRepository{})
	_, err := svc.Role(context.Background(), model.Identity{UserID: "ghost"})
	if !errors.Is(err, model.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestAccountService_LegacyReadFailure(t *testing.T) {
	repo := &mockAccountRepository{
		legacyFn: func(table string) error {
			if table == model.LegacyVisitorTable {
				return store.ErrTransient
			}
			return nil
		},
	}
	svc := NewAccountService(repo)

	_, err := svc.Role(context.Background(), model.Identity{UserID: "u1"})
	if !store.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
	if len(repo.saveCalls) != 0 {
		t.Error("nothing should be migrated after a failed read")
	}
}

func TestAccountService_FindByNameOnStore(t *testing.T) {
	mem := store.NewMemory()
	repo := repository.NewAccountRepository(mem)
	ctx := context.Background()
	for _, a := range []*model.Account{
		{ID: "u2", Role: model.RoleArtist, Name: "Mira"},
		{ID: "u1", Role: model.RoleArtist, Name: "Mira"},
		{ID: "u3", Role: model.RoleVisitor, Name: "Tom"},
	} {
		if err := repo.Save(ctx, a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	svc := NewAccountService(repo)

	got, err := svc.FindByName(ctx, "Mira")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("id = %q, want u1 (lowest id)", got.ID)
	}

	if _, err := svc.FindByName(ctx, "Nobody"); !errors.Is(err, model.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}
