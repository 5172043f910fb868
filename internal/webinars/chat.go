package webinars

import (
	"context"

	"github.com/google/uuid"

	"github.com/pipecast/backend/internal/models"
)

// ChatGate decides whether chat messages are accepted for a webinar. The
// presenter may always post; everyone else is blocked while the webinar's
// chat lock is on.
type ChatGate struct {
	repo *Repository
}

// NewChatGate creates a chat gate over the webinar repository.
func NewChatGate(repo *Repository) *ChatGate {
	return &ChatGate{repo: repo}
}

// ChatAllowed reports whether a participant with the given role may post.
func (g *ChatGate) ChatAllowed(ctx context.Context, webinarID uuid.UUID, role string) (bool, error) {
	if role == string(models.RolePresenter) || role == string(models.RoleAdmin) {
		return true, nil
	}
	w, err := g.repo.GetByID(ctx, webinarID)
	if err != nil {
		return false, err
	}
	return !w.LockChat, nil
}
