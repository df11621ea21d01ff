package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// Service maintains the chart of accounts and its classification rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create classifies the code and inserts the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Account{}, internalshared.Validation("accounting: account name required")
	}
	cls, err := Classify(in.Code)
	if err != nil {
		return Account{}, err
	}
	if _, err := s.repo.FindByCode(ctx, in.Code); err == nil {
		return Account{}, shared.ErrDuplicateAccountCode
	} else if !errors.Is(err, shared.ErrAccountNotFound) {
		return Account{}, err
	}
	if in.ParentID != nil {
		parent, err := s.repo.FindByID(ctx, *in.ParentID)
		if err != nil {
			return Account{}, err
		}
		if !parent.IsHeader {
			return Account{}, internalshared.Validation("accounting: parent must be a header account")
		}
		if parent.Type != cls.Type {
			return Account{}, internalshared.Validation("accounting: parent account type mismatch")
		}
	}
	account := Account{
		Code:          in.Code,
		Name:          name,
		Type:          cls.Type,
		Category:      cls.Category,
		NormalBalance: cls.NormalBalance,
		IsHeader:      in.IsHeader,
		IsSystem:      in.IsSystem,
		ParentID:      in.ParentID,
		IsActive:      true,
	}
	return s.repo.Insert(ctx, account)
}

// Update applies mutable fields. Changing the code reclassifies the account;
// system account codes are immutable.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Account, error) {
	account, err := s.repo.FindByID(ctx, in.AccountID)
	if err != nil {
		return Account{}, err
	}
	if in.Code != nil && *in.Code != account.Code {
		if account.IsSystem {
			return Account{}, shared.ErrSystemAccountCode
		}
		cls, err := Classify(*in.Code)
		if err != nil {
			return Account{}, err
		}
		if existing, err := s.repo.FindByCode(ctx, *in.Code); err == nil && existing.ID != account.ID {
			return Account{}, shared.ErrDuplicateAccountCode
		} else if err != nil && !errors.Is(err, shared.ErrAccountNotFound) {
			return Account{}, err
		}
		account.Code = *in.Code
		account.Type = cls.Type
		account.Category = cls.Category
		account.NormalBalance = cls.NormalBalance
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Account{}, internalshared.Validation("accounting: account name required")
		}
		account.Name = name
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	return s.repo.Update(ctx, account)
}

// Delete removes an account without postings or children.
func (s *Service) Delete(ctx context.Context, accountID int64) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return shared.ErrSystemAccountCode
	}
	posted, err := s.repo.HasPostings(ctx, accountID)
	if err != nil {
		return err
	}
	if posted {
		return shared.ErrAccountHasPostings
	}
	children, err := s.repo.HasChildren(ctx, accountID)
	if err != nil {
		return err
	}
	if children {
		return shared.ErrAccountHasChildren
	}
	return s.repo.Delete(ctx, accountID)
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByCode returns an account by its 4-digit code.
func (s *Service) GetByCode(ctx context.Context, code string) (Account, error) {
	return s.repo.FindByCode(ctx, code)
}

// List returns all accounts ordered by code.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Children returns direct children of a header account.
func (s *Service) Children(ctx context.Context, parentID int64) ([]Account, error) {
	if _, err := s.repo.FindByID(ctx, parentID); err != nil {
		return nil, err
	}
	return s.repo.FindChildren(ctx, parentID)
}
