package repository

import (
	"context"
	"fmt"
	"sort"

	"arthub/internal/model"
	"arthub/internal/store"
)

const accountsRoot = "accounts"

type accountRepository struct {
	store store.Store
}

func NewAccountRepository(s store.Store) AccountRepository {
	return &accountRepository{store: s}
}

func (r *accountRepository) Get(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	if err := r.store.Get(ctx, store.Join(accountsRoot, userID), &account); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account.Role == model.RoleUnknown {
		return nil, model.ErrAccountNotFound
	}
	account.ID = userID
	return &account, nil
}

func (r *accountRepository) Save(ctx context.Context, account *model.Account) error {
	if err := r.store.Set(ctx, store.Join(accountsRoot, account.ID), account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// FindByName returns the first account (by id) whose name matches exactly.
func (r *accountRepository) FindByName(ctx context.Context, name string) (*model.Account, error) {
	var matches map[string]model.Account
	if err := r.store.QueryEqual(ctx, accountsRoot, "name", name, &matches); err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if len(matches) == 0 {
		return nil, model.ErrAccountNotFound
	}
	ids := make([]string, 0, len(matches))
	for id := range matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	account := matches[ids[0]]
	account.ID = ids[0]
	return &account, nil
}

func (r *accountRepository) GetLegacy(ctx context.Context, table, userID string) (map[string]any, bool, error) {
	var record map[string]any
	if err := r.store.Get(ctx, store.Join(table, userID), &record); err != nil {
		return nil, false, fmt.Errorf("get %s record: %w", table, err)
	}
	return record, len(record) > 0, nil
}
