package server

import (
	"context"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/service"
)

type commentRequest struct {
	_       struct{} `json:"-" additionalProperties:"true"`
	Message *string  `json:"message,omitempty"`
}

type commentOutput struct {
	Body model.CommentView
}

type createCommentInput struct {
	CardID int64          `path:"cardId"`
	Body   commentRequest `required:"false"`
}

func (s *Server) createComment(ctx context.Context, input *createCommentInput) (*commentOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	comment, err := s.service.CreateComment(ctx, input.CardID, service.CommentPayload{Message: input.Body.Message}, identity)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &commentOutput{Body: comment}, nil
}

type commentPathInput struct {
	CardID int64 `path:"cardId"`
	ID     int64 `path:"id"`
}

type updateCommentInput struct {
	CardID int64          `path:"cardId"`
	ID     int64          `path:"id"`
	Body   commentRequest `required:"false"`
}

func (s *Server) updateComment(ctx context.Context, input *updateCommentInput) (*commentOutput, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	comment, err := s.service.UpdateComment(ctx, input.CardID, input.ID, service.CommentPayload{Message: input.Body.Message})
	if err != nil {
		return nil, toHumaError(err)
	}
	return &commentOutput{Body: comment}, nil
}

func (s *Server) deleteComment(ctx context.Context, input *commentPathInput) (*messageOutput, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	msg, err := s.service.DeleteComment(ctx, input.CardID, input.ID)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &messageOutput{Body: msg}, nil
}
