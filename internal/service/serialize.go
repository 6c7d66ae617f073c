package service

import "github.com/simonjohansson/taskboard/internal/model"

func serializeCard(card model.Card) model.CardView {
	comments := make([]model.CommentView, 0, len(card.Comments))
	for _, c := range card.Comments {
		comments = append(comments, serializeComment(c))
	}
	return model.CardView{
		ID:          card.ID,
		Title:       card.Title,
		Description: cloneString(card.Description),
		Date:        card.Date.Format(model.DateLayout),
		Status:      cloneString(card.Status),
		Priority:    cloneString(card.Priority),
		User: model.UserSummary{
			ID:    card.Owner.ID,
			Name:  card.Owner.Name,
			Email: card.Owner.Email,
		},
		Comments: comments,
	}
}

// serializeComment omits the parent card so nested output stays acyclic.
func serializeComment(comment model.Comment) model.CommentView {
	return model.CommentView{
		ID:      comment.ID,
		Message: comment.Message,
		Date:    comment.Date.Format(model.DateLayout),
		UserID:  comment.UserID,
	}
}

func serializeCards(cards []model.Card) []model.CardView {
	out := make([]model.CardView, 0, len(cards))
	for _, card := range cards {
		out = append(out, serializeCard(card))
	}
	return out
}
