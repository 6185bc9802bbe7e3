package application

import (
	"context"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/survey/domain"
)

// Repository は surveys コレクションへのポート。
type Repository interface {
	Insert(ctx context.Context, survey *domain.Survey) (shared.InsertResult, error)
	Find(ctx context.Context) ([]domain.Survey, error)
	// FindTop returns surveys ordered by rankField descending, truncated to limit.
	FindTop(ctx context.Context, rankField string, limit int) ([]domain.Survey, error)
	FindByID(ctx context.Context, id string) (*domain.Survey, error)
	// Upsert replaces the fixed field set of the survey with id, creating it when absent.
	Upsert(ctx context.Context, id string, survey *domain.Survey) (shared.UpdateResult, error)
	Delete(ctx context.Context, id string) (shared.DeleteResult, error)

	// IncrementVote atomically bumps the counters and returns the updated survey.
	IncrementVote(ctx context.Context, id string, choice domain.VoteChoice) (*domain.Survey, error)
	// SetVoteCounts overwrites the three counters.
	SetVoteCounts(ctx context.Context, id string, yes, no, total int) error
	// PushComment atomically appends to the comment sequence.
	PushComment(ctx context.Context, id string, comment any) error
	// SetComments overwrites the whole comment sequence.
	SetComments(ctx context.Context, id string, comments []any) error
}

// Store describes survey use-cases.
type Store interface {
	Create(ctx context.Context, survey domain.Survey) (shared.InsertResult, error)
	List(ctx context.Context) ([]domain.Survey, error)
	ListTop(ctx context.Context, limit int) ([]domain.Survey, error)
	Get(ctx context.Context, id string) (*domain.Survey, error)
	Update(ctx context.Context, id string, survey domain.Survey) (shared.UpdateResult, error)
	Delete(ctx context.Context, id string) (shared.DeleteResult, error)
	// Vote accepts the raw ballot value; anything but "yes"/"no" is rejected
	// after the survey is known to exist.
	Vote(ctx context.Context, id string, choice any) (*domain.Survey, error)
	AddComment(ctx context.Context, id string, comment any) (any, error)
	Report(ctx context.Context, id string) error
}

// Options tunes Store behaviour.
type Options struct {
	// AtomicWrites switches vote and comment to single conditional writes.
	AtomicWrites bool
	// RankField is the field ListTop orders by ("totalVote" or "topVote").
	RankField string
	// TopLimit is used when ListTop is called with a non-positive limit.
	TopLimit int
}
