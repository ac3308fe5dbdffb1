package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"arthub/internal/model"
	"arthub/internal/repository"
)

// legacyTables lists the pre-accounts role tables in precedence order.
var legacyTables = []struct {
	table string
	role  model.Role
}{
	{model.LegacyAdminTable, model.RoleAdmin},
	{model.LegacyArtistTable, model.RoleArtist},
	{model.LegacyVisitorTable, model.RoleVisitor},
}

// AccountService resolves which role a user has.
type AccountService struct {
	accountRepo repository.AccountRepository
}

func NewAccountService(accountRepo repository.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// Account returns the user's unified account record. Users that only exist
// in the legacy role tables are migrated on first access.
func (s *AccountService) Account(ctx context.Context, identity model.Identity) (*model.Account, error) {
	account, err := s.accountRepo.Get(ctx, identity.UserID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	account, err = s.resolveLegacy(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if account.Email == "" {
		account.Email = identity.Email
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		// The role is still correct; the next lookup migrates again.
		log.Printf("[AccountService] Failed to migrate user %s into accounts: %v", identity.UserID, err)
	} else {
		log.Printf("[AccountService] Migrated user %s as %s", identity.UserID, account.Role)
	}
	return account, nil
}

// Role returns the user's role.
func (s *AccountService) Role(ctx context.Context, identity model.Identity) (model.Role, error) {
	account, err := s.Account(ctx, identity)
	if err != nil {
		return model.RoleUnknown, err
	}
	return account.Role, nil
}

// resolveLegacy reads every legacy table concurrently and picks the
// highest-precedence match.
func (s *AccountService) resolveLegacy(ctx context.Context, userID string) (*model.Account, error) {
	records := make([]map[string]any, len(legacyTables))

	g, gctx := errgroup.WithContext(ctx)
	for i, lt := range legacyTables {
		g.Go(func() error {
			record, found, err := s.accountRepo.GetLegacy(gctx, lt.table, userID)
			if err != nil {
				return err
			}
			if found {
				records[i] = record
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve legacy role: %w", err)
	}

	for i, lt := range legacyTables {
		if records[i] == nil {
			continue
		}
		email, _ := records[i]["email"].(string)
		name, _ := records[i]["name"].(string)
		return &model.Account{ID: userID, Role: lt.role, Email: email, Name: name}, nil
	}
	return nil, model.ErrAccountNotFound
}

// FindByName looks an account up by its exact display name.
func (s *AccountService) FindByName(ctx context.Context, name string) (*model.Account, error) {
	if name == "" {
		return nil, model.ErrAccountNotFound
	}
	return s.accountRepo.FindByName(ctx, name)
}
