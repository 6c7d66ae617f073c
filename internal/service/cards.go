package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/policy"
	"github.com/simonjohansson/taskboard/internal/store"
)

func (s *Service) GetAllCards(ctx context.Context) ([]model.CardView, error) {
	var cards []model.Card
	err := s.store.View(ctx, func(repos Repositories) error {
		var err error
		cards, err = repos.Cards().ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, s.fail("list cards", err)
	}
	return serializeCards(cards), nil
}

func (s *Service) GetCard(ctx context.Context, id int64) (model.CardView, error) {
	var card model.Card
	err := s.store.View(ctx, func(repos Repositories) error {
		var err error
		card, err = loadCard(ctx, repos, id)
		return err
	})
	if err != nil {
		return model.CardView{}, s.fail("get card", err)
	}
	return serializeCard(card), nil
}

func (s *Service) CreateCard(ctx context.Context, payload CardPayload, identity model.Identity) (model.CardView, error) {
	if payload.Title == nil {
		return model.CardView{}, newError(CodeValidation, "Title is required", nil)
	}
	if err := validateCardFields(payload); err != nil {
		return model.CardView{}, err
	}

	card := model.Card{
		Title:       *payload.Title,
		Description: cloneString(payload.Description),
		Date:        s.today(),
		Status:      cloneString(payload.Status),
		Priority:    cloneString(payload.Priority),
		UserID:      int64(identity),
		Comments:    []model.Comment{},
	}

	err := s.store.InTx(ctx, func(repos Repositories) error {
		if card.HasStatus(model.StatusOngoing) {
			if err := s.ensureNoOngoing(ctx, repos); err != nil {
				return err
			}
		}
		owner, err := loadIdentity(ctx, repos, identity)
		if err != nil {
			return err
		}
		card.Owner = owner
		return s.ongoingConflict(repos.Cards().Insert(ctx, &card))
	})
	if err != nil {
		return model.CardView{}, s.fail("create card", err)
	}

	s.recorder.CardCreated()
	s.logger.Info("card created", "card_id", card.ID, "user_id", card.UserID, "status", derefOrEmpty(card.Status))
	s.publish(model.Event{Type: model.EventTypeCardCreated, CardID: card.ID, UserID: card.UserID})
	return serializeCard(card), nil
}

// UpdateCard checks existence, then ownership, then the fields in payload.
func (s *Service) UpdateCard(ctx context.Context, id int64, payload CardPayload, identity model.Identity) (model.CardView, error) {
	var card model.Card
	err := s.store.InTx(ctx, func(repos Repositories) error {
		var err error
		card, err = loadCard(ctx, repos, id)
		if err != nil {
			return err
		}
		if !policy.New(repos.Users()).CanEdit(card, identity) {
			return newError(CodeForbidden, msgNotOwner, nil)
		}
		if err := validateCardFields(payload); err != nil {
			return err
		}

		becomesOngoing := payload.Status != nil && *payload.Status == model.StatusOngoing && !card.HasStatus(model.StatusOngoing)
		if becomesOngoing {
			if err := s.ensureNoOngoing(ctx, repos); err != nil {
				return err
			}
		}

		if payload.Title != nil {
			card.Title = *payload.Title
		}
		if payload.Description != nil {
			card.Description = cloneString(payload.Description)
		}
		if payload.Status != nil {
			card.Status = cloneString(payload.Status)
		}
		if payload.Priority != nil {
			card.Priority = cloneString(payload.Priority)
		}
		if payload.Empty() {
			return nil
		}
		return s.ongoingConflict(repos.Cards().Update(ctx, card))
	})
	if err != nil {
		return model.CardView{}, s.fail("update card", err)
	}
	if payload.Empty() {
		return serializeCard(card), nil
	}

	s.logger.Info("card updated", "card_id", card.ID, "user_id", int64(identity), "status", derefOrEmpty(card.Status))
	s.publish(model.Event{Type: model.EventTypeCardUpdated, CardID: card.ID, UserID: int64(identity)})
	return serializeCard(card), nil
}

func (s *Service) DeleteCard(ctx context.Context, id int64, identity model.Identity) (model.Message, error) {
	var card model.Card
	err := s.store.InTx(ctx, func(repos Repositories) error {
		var err error
		card, err = loadCard(ctx, repos, id)
		if err != nil {
			return err
		}
		allowed, err := policy.New(repos.Users()).CanDelete(ctx, card, identity)
		if err != nil {
			return err
		}
		if !allowed {
			return newError(CodeForbidden, msgNotAuthorised, nil)
		}
		return repos.Cards().Delete(ctx, card)
	})
	if err != nil {
		return model.Message{}, s.fail("delete card", err)
	}

	s.recorder.CardDeleted()
	s.logger.Info("card deleted", "card_id", card.ID, "user_id", int64(identity), "comments_removed", len(card.Comments))
	s.publish(model.Event{Type: model.EventTypeCardDeleted, CardID: card.ID, UserID: int64(identity)})
	return model.Message{Message: fmt.Sprintf("Card '%s' deleted successfully", card.Title)}, nil
}

func loadCard(ctx context.Context, repos Repositories, id int64) (model.Card, error) {
	card, err := repos.Cards().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Card{}, newError(CodeNotFound, fmt.Sprintf("Card with id %d not found", id), err)
		}
		return model.Card{}, err
	}
	return card, nil
}

// loadIdentity resolves the caller; a token for a removed user is
// treated as unauthenticated.
func loadIdentity(ctx context.Context, repos Repositories, identity model.Identity) (model.User, error) {
	user, err := repos.Users().GetByID(ctx, int64(identity))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, newError(CodeUnauthorized, "User not found", err)
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *Service) ensureNoOngoing(ctx context.Context, repos Repositories) error {
	count, err := repos.Cards().CountByStatus(ctx, model.StatusOngoing)
	if err != nil {
		return err
	}
	if count > 0 {
		s.recorder.OngoingConflict()
		return newError(CodeValidation, msgOngoingConflict, nil)
	}
	return nil
}

// ongoingConflict maps a unique index violation that slipped past the count
// check to the same validation error.
func (s *Service) ongoingConflict(err error) error {
	if errors.Is(err, store.ErrOngoingConflict) {
		s.recorder.OngoingConflict()
		return newError(CodeValidation, msgOngoingConflict, err)
	}
	return err
}

func (s *Service) fail(op string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.logger.Error(op+" failed", "error", err)
	return storageError(err)
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
