package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
)

type memoryRepo struct {
	accounts map[int64]Account
	postings map[int64]bool
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]Account), postings: make(map[int64]bool)}
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (Account, error) {
	if a, ok := r.accounts[id]; ok {
		return a, nil
	}
	return Account{}, shared.ErrAccountNotFound
}

func (r *memoryRepo) FindByCode(ctx context.Context, code string) (Account, error) {
	for _, a := range r.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return Account{}, shared.ErrAccountNotFound
}

func (r *memoryRepo) FindChildren(ctx context.Context, parentID int64) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryRepo) HasPostings(ctx context.Context, accountID int64) (bool, error) {
	return r.postings[accountID], nil
}

func (r *memoryRepo) HasChildren(ctx context.Context, accountID int64) (bool, error) {
	for _, a := range r.accounts {
		if a.ParentID != nil && *a.ParentID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) Insert(ctx context.Context, account Account) (Account, error) {
	r.nextID++
	account.ID = r.nextID
	r.accounts[account.ID] = account
	return account, nil
}

func (r *memoryRepo) Update(ctx context.Context, account Account) (Account, error) {
	if _, ok := r.accounts[account.ID]; !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	r.accounts[account.ID] = account
	return account, nil
}

func (r *memoryRepo) Delete(ctx context.Context, accountID int64) error {
	if _, ok := r.accounts[accountID]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(r.accounts, accountID)
	return nil
}

func TestCreateClassifiesAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	cash, err := svc.Create(ctx, CreateInput{Code: "1010", Name: "Cash on Hand"})
	require.NoError(t, err)
	require.Equal(t, AccountTypeAsset, cash.Type)
	require.Equal(t, NormalBalanceDebit, cash.NormalBalance)
	require.Equal(t, "CURRENT_ASSET", cash.Category)
	require.True(t, cash.Postable())

	_, err = svc.Create(ctx, CreateInput{Code: "1010", Name: "Duplicate"})
	require.ErrorIs(t, err, shared.ErrDuplicateAccountCode)

	_, err = svc.Create(ctx, CreateInput{Code: "0001", Name: "Out of band"})
	require.ErrorIs(t, err, shared.ErrInvalidAccountCode)
}

func TestSystemAccountCodeImmutable(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	ar, err := svc.Create(ctx, CreateInput{Code: "1100", Name: "Accounts Receivable", IsSystem: true})
	require.NoError(t, err)

	newCode := "1200"
	_, err = svc.Update(ctx, UpdateInput{AccountID: ar.ID, Code: &newCode})
	require.ErrorIs(t, err, shared.ErrSystemAccountCode)

	// Renaming is still allowed.
	name := "Trade Receivables"
	updated, err := svc.Update(ctx, UpdateInput{AccountID: ar.ID, Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Trade Receivables", updated.Name)
	require.Equal(t, "1100", updated.Code)
}

func TestDeleteGuards(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	header, err := svc.Create(ctx, CreateInput{Code: "1000", Name: "Current Assets", IsHeader: true})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateInput{Code: "1020", Name: "Bank", ParentID: &header.ID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, header.ID), shared.ErrAccountHasChildren)

	repo.postings[child.ID] = true
	require.ErrorIs(t, svc.Delete(ctx, child.ID), shared.ErrAccountHasPostings)

	repo.postings[child.ID] = false
	require.NoError(t, svc.Delete(ctx, child.ID))
	require.NoError(t, svc.Delete(ctx, header.ID))
	require.ErrorIs(t, svc.Delete(ctx, header.ID), shared.ErrAccountNotFound)
}

func TestParentMustBeHeaderOfSameType(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	detail, err := svc.Create(ctx, CreateInput{Code: "1010", Name: "Cash"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "1020", Name: "Bank", ParentID: &detail.ID})
	require.Error(t, err)

	header, err := svc.Create(ctx, CreateInput{Code: "2000", Name: "Current Liabilities", IsHeader: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Code: "1030", Name: "Petty Cash", ParentID: &header.ID})
	require.Error(t, err)
}
