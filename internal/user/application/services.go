package application

import (
	"context"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// Repository は users コレクションへのポート。1 メソッド = 1 回のストア呼び出し。
type Repository interface {
	// Insert stores the user unconditionally.
	Insert(ctx context.Context, user *domain.User) (shared.InsertResult, error)
	// InsertIfAbsent stores the user only when no record shares its email.
	// created is false when a record already existed.
	InsertIfAbsent(ctx context.Context, user *domain.User) (result shared.InsertResult, created bool, err error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Find(ctx context.Context, filter Filter) ([]domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role) (shared.UpdateResult, error)
	Delete(ctx context.Context, id string) (shared.DeleteResult, error)
}

// Filter narrows user listings. An empty Role lists every user.
type Filter struct {
	Role string
}

// CreateResult reports the outcome of Directory.Create.
type CreateResult struct {
	Created    bool
	InsertedID string
}

// Directory describes user-management use-cases.
type Directory interface {
	Create(ctx context.Context, user domain.User) (CreateResult, error)
	List(ctx context.Context, filter Filter) ([]domain.User, error)
	HasRole(ctx context.Context, email string, role domain.Role) (bool, error)
	IsAdmin(ctx context.Context, email string) (bool, error)
	IsSurveyor(ctx context.Context, email string) (bool, error)
	Promote(ctx context.Context, id string, role domain.Role) (shared.UpdateResult, error)
	Delete(ctx context.Context, id string) (shared.DeleteResult, error)
}

// Options tunes Directory behaviour.
type Options struct {
	// AtomicWrites makes Create a single conditional write instead of
	// find-then-insert, closing the duplicate-email race.
	AtomicWrites bool
}
