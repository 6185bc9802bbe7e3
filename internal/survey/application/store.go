package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/survey/domain"
)

const (
	defaultRankField = "totalVote"
	defaultTopLimit  = 6
)

type store struct {
	repo Repository
	opts Options
}

// NewStore returns the Store backed by repo.
func NewStore(repo Repository, opts Options) Store {
	if opts.RankField == "" {
		opts.RankField = defaultRankField
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = defaultTopLimit
	}
	return &store{repo: repo, opts: opts}
}

func (s *store) Create(ctx context.Context, survey domain.Survey) (shared.InsertResult, error) {
	survey.ID = ""
	return s.repo.Insert(ctx, &survey)
}

func (s *store) List(ctx context.Context) ([]domain.Survey, error) {
	return s.repo.Find(ctx)
}

func (s *store) ListTop(ctx context.Context, limit int) ([]domain.Survey, error) {
	if limit <= 0 {
		limit = s.opts.TopLimit
	}
	return s.repo.FindTop(ctx, s.opts.RankField, limit)
}

// Get は votes が未保存のレコードに 0 票の集計を補って返す。補完は永続化しない。
func (s *store) Get(ctx context.Context, id string) (*domain.Survey, error) {
	survey, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := survey.WithDefaultTally()
	return &view, nil
}

func (s *store) Update(ctx context.Context, id string, survey domain.Survey) (shared.UpdateResult, error) {
	return s.repo.Upsert(ctx, id, &survey)
}

func (s *store) Delete(ctx context.Context, id string) (shared.DeleteResult, error) {
	return s.repo.Delete(ctx, id)
}

// Vote は存在確認を票の検証より先に行う（存在しなければ NotFound が優先）。
func (s *store) Vote(ctx context.Context, id string, choice any) (*domain.Survey, error) {
	if s.opts.AtomicWrites {
		return s.voteAtomic(ctx, id, choice)
	}

	// 読み取りから書き戻しまでの間に他の投票が入ると失われる。
	survey, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vote, err := domain.ParseVoteChoice(choice)
	if err != nil {
		return nil, err
	}
	survey.ApplyVote(vote)
	if err := s.repo.SetVoteCounts(ctx, id, survey.YesCount, survey.NoCount, survey.TotalVote); err != nil {
		return nil, fmt.Errorf("store vote counts: %w", err)
	}
	return survey, nil
}

func (s *store) voteAtomic(ctx context.Context, id string, choice any) (*domain.Survey, error) {
	vote, err := domain.ParseVoteChoice(choice)
	if err != nil {
		if _, findErr := s.repo.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, err
	}
	survey, err := s.repo.IncrementVote(ctx, id, vote)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrInvalidID) {
			return nil, err
		}
		return nil, fmt.Errorf("increment vote: %w", err)
	}
	return survey, nil
}

// AddComment appends comment and returns it as stored.
func (s *store) AddComment(ctx context.Context, id string, comment any) (any, error) {
	if comment == nil {
		return nil, fmt.Errorf("%w: comment is required", shared.ErrInvalidInput)
	}

	if s.opts.AtomicWrites {
		if err := s.repo.PushComment(ctx, id, comment); err != nil {
			return nil, err
		}
		return comment, nil
	}

	survey, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	survey.AppendComment(comment)
	if err := s.repo.SetComments(ctx, id, survey.Comments); err != nil {
		return nil, fmt.Errorf("store comments: %w", err)
	}
	return comment, nil
}

// Report acknowledges a report. Nothing is persisted.
func (s *store) Report(_ context.Context, _ string) error {
	return nil
}
