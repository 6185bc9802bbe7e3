package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

type directory struct {
	repo Repository
	opts Options
}

// NewDirectory returns the Directory backed by repo.
func NewDirectory(repo Repository, opts Options) Directory {
	return &directory{repo: repo, opts: opts}
}

// Create は email 単位で冪等にユーザーを登録する。既存の場合は Created=false を返し、状態を変更しない。
func (d *directory) Create(ctx context.Context, user domain.User) (CreateResult, error) {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return CreateResult{}, fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}

	if d.opts.AtomicWrites {
		result, created, err := d.repo.InsertIfAbsent(ctx, &user)
		if err != nil {
			return CreateResult{}, fmt.Errorf("insert user: %w", err)
		}
		return CreateResult{Created: created, InsertedID: result.InsertedID}, nil
	}

	// find と insert の間は排他されない。同時登録で重複し得る。
	existing, err := d.repo.FindByEmail(ctx, user.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return CreateResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return CreateResult{Created: false}, nil
	}

	result, err := d.repo.Insert(ctx, &user)
	if err != nil {
		return CreateResult{}, fmt.Errorf("insert user: %w", err)
	}
	return CreateResult{Created: true, InsertedID: result.InsertedID}, nil
}

func (d *directory) List(ctx context.Context, filter Filter) ([]domain.User, error) {
	filter.Role = strings.TrimSpace(filter.Role)
	return d.repo.Find(ctx, filter)
}

// HasRole は email で引いたレコードの role が一致する場合のみ true。レコードが無ければ false。
func (d *directory) HasRole(ctx context.Context, email string, role domain.Role) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	user, err := d.repo.FindByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return user.Role == role, nil
}

func (d *directory) IsAdmin(ctx context.Context, email string) (bool, error) {
	return d.HasRole(ctx, email, domain.RoleAdmin)
}

func (d *directory) IsSurveyor(ctx context.Context, email string) (bool, error) {
	return d.HasRole(ctx, email, domain.RoleSurveyor)
}

// Promote overwrites the role field. A missing id is not an error; the
// returned MatchedCount is zero.
func (d *directory) Promote(ctx context.Context, id string, role domain.Role) (shared.UpdateResult, error) {
	if !role.Privileged() {
		return shared.UpdateResult{}, fmt.Errorf("%w: unsupported role %q", shared.ErrInvalidInput, role)
	}
	return d.repo.SetRole(ctx, id, role)
}

func (d *directory) Delete(ctx context.Context, id string) (shared.DeleteResult, error) {
	return d.repo.Delete(ctx, id)
}
