// Package policy decides who may change or remove a card.
package policy

import (
	"context"
	"errors"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/store"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type Policy struct {
	users UserLookup
}

func New(users UserLookup) Policy {
	return Policy{users: users}
}

// IsAdmin reports the admin flag of identity. Unknown users are not admins.
func (p Policy) IsAdmin(ctx context.Context, identity model.Identity) (bool, error) {
	user, err := p.users.GetByID(ctx, int64(identity))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// CanDelete grants the owner and any admin.
func (p Policy) CanDelete(ctx context.Context, card model.Card, identity model.Identity) (bool, error) {
	if card.OwnedBy(identity) {
		return true, nil
	}
	return p.IsAdmin(ctx, identity)
}

// CanEdit grants the owner only. Admins may delete a card but not edit it.
func (p Policy) CanEdit(card model.Card, identity model.Identity) bool {
	return card.OwnedBy(identity)
}
