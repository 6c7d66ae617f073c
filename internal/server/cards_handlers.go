package server

import (
	"context"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/service"
)

type cardRequest struct {
	_           struct{} `json:"-" additionalProperties:"true"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty" nullable:"true"`
	Status      *string  `json:"status,omitempty"`
	Priority    *string  `json:"priority,omitempty"`
}

func (r cardRequest) payload() service.CardPayload {
	return service.CardPayload{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
	}
}

type cardOutput struct {
	Body model.CardView
}

type listCardsOutput struct {
	Body []model.CardView
}

func (s *Server) listCards(ctx context.Context, _ *struct{}) (*listCardsOutput, error) {
	cards, err := s.service.GetAllCards(ctx)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &listCardsOutput{Body: cards}, nil
}

type cardPathInput struct {
	ID int64 `path:"id"`
}

func (s *Server) getCard(ctx context.Context, input *cardPathInput) (*cardOutput, error) {
	card, err := s.service.GetCard(ctx, input.ID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &cardOutput{Body: card}, nil
}

type createCardInput struct {
	Body cardRequest `required:"false"`
}

func (s *Server) createCard(ctx context.Context, input *createCardInput) (*cardOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.service.CreateCard(ctx, input.Body.payload(), identity)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &cardOutput{Body: card}, nil
}

type updateCardInput struct {
	ID   int64       `path:"id"`
	Body cardRequest `required:"false"`
}

func (s *Server) updateCard(ctx context.Context, input *updateCardInput) (*cardOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	card, err := s.service.UpdateCard(ctx, input.ID, input.Body.payload(), identity)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &cardOutput{Body: card}, nil
}

type messageOutput struct {
	Body model.Message
}

func (s *Server) deleteCard(ctx context.Context, input *cardPathInput) (*messageOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := s.service.DeleteCard(ctx, input.ID, identity)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &messageOutput{Body: msg}, nil
}
