package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/store"
)

func (s *Service) CreateComment(ctx context.Context, cardID int64, payload CommentPayload, identity model.Identity) (model.CommentView, error) {
	var comment model.Comment
	err := s.store.InTx(ctx, func(repos Repositories) error {
		if _, err := loadCard(ctx, repos, cardID); err != nil {
			return err
		}
		if err := validateMessage(payload.Message); err != nil {
			return err
		}
		if _, err := loadIdentity(ctx, repos, identity); err != nil {
			return err
		}
		comment = model.Comment{
			Message: *payload.Message,
			Date:    s.today(),
			CardID:  cardID,
			UserID:  int64(identity),
		}
		return repos.Comments().Insert(ctx, &comment)
	})
	if err != nil {
		return model.CommentView{}, s.fail("create comment", err)
	}

	s.recorder.CommentCreated()
	s.logger.Info("comment created", "card_id", cardID, "comment_id", comment.ID, "user_id", comment.UserID)
	s.publish(model.Event{Type: model.EventTypeCommentCreated, CardID: cardID, CommentID: comment.ID, UserID: comment.UserID})
	return serializeComment(comment), nil
}

// UpdateComment replaces the message when one is given. Any authenticated
// user may edit any comment.
func (s *Service) UpdateComment(ctx context.Context, cardID, commentID int64, payload CommentPayload) (model.CommentView, error) {
	if payload.Message == nil {
		return s.getComment(ctx, cardID, commentID)
	}

	var comment model.Comment
	err := s.store.InTx(ctx, func(repos Repositories) error {
		var err error
		comment, err = loadComment(ctx, repos, cardID, commentID)
		if err != nil {
			return err
		}
		if err := validateMessage(payload.Message); err != nil {
			return err
		}
		comment.Message = *payload.Message
		return repos.Comments().Update(ctx, comment)
	})
	if err != nil {
		return model.CommentView{}, s.fail("update comment", err)
	}

	s.logger.Info("comment updated", "card_id", cardID, "comment_id", comment.ID)
	s.publish(model.Event{Type: model.EventTypeCommentUpdated, CardID: cardID, CommentID: comment.ID})
	return serializeComment(comment), nil
}

func (s *Service) getComment(ctx context.Context, cardID, commentID int64) (model.CommentView, error) {
	var comment model.Comment
	err := s.store.View(ctx, func(repos Repositories) error {
		var err error
		comment, err = loadComment(ctx, repos, cardID, commentID)
		return err
	})
	if err != nil {
		return model.CommentView{}, s.fail("get comment", err)
	}
	return serializeComment(comment), nil
}

func (s *Service) DeleteComment(ctx context.Context, cardID, commentID int64) (model.Message, error) {
	var comment model.Comment
	err := s.store.InTx(ctx, func(repos Repositories) error {
		var err error
		comment, err = loadComment(ctx, repos, cardID, commentID)
		if err != nil {
			return err
		}
		return repos.Comments().Delete(ctx, comment)
	})
	if err != nil {
		return model.Message{}, s.fail("delete comment", err)
	}

	s.recorder.CommentDeleted()
	s.logger.Info("comment deleted", "card_id", cardID, "comment_id", comment.ID)
	s.publish(model.Event{Type: model.EventTypeCommentDeleted, CardID: cardID, CommentID: comment.ID})
	return model.Message{Message: fmt.Sprintf("Comment '%s' deleted successfully", comment.Message)}, nil
}

func loadComment(ctx context.Context, repos Repositories, cardID, commentID int64) (model.Comment, error) {
	comment, err := repos.Comments().GetByID(ctx, cardID, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Comment{}, newError(CodeNotFound, fmt.Sprintf("Comment with id %d not found", commentID), err)
		}
		return model.Comment{}, err
	}
	return comment, nil
}
