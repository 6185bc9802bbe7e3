package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUniqueEmailIndex は users.email の一意インデックスを用意できなかったことを表す。
// アトミックな利用者登録はこのインデックスに依存する。
var ErrUniqueEmailIndex = errors.New("unique email index unavailable")

// emailIndexName はモードに関わらず同じ名前を使う。
const emailIndexName = "email_1"

const namespaceNotFound = 26

// IndexOptions controls which optional indexes EnsureIndexes creates.
type IndexOptions struct {
	// UniqueEmail requires users.email to be unique. Existing duplicate data
	// or an existing non-unique email index makes EnsureIndexes report
	// ErrUniqueEmailIndex.
	UniqueEmail bool
}

// EnsureIndexes は検索・ランキングで使うインデックスを作成する。既に存在する場合は何もしない。
// 各インデックスは個別に作成し、1 つの失敗が他を巻き込まないようにする。失敗はまとめて返す。
func EnsureIndexes(ctx context.Context, db *mongo.Database, userCollection, surveyCollection string, opts IndexOptions) error {
	users := db.Collection(userCollection)
	var errs []error

	if err := ensureEmailIndex(ctx, users, opts.UniqueEmail); err != nil {
		if opts.UniqueEmail {
			errs = append(errs, fmt.Errorf("%w on %s: %v", ErrUniqueEmailIndex, userCollection, err))
		} else {
			errs = append(errs, fmt.Errorf("ensure %s email index: %w", userCollection, err))
		}
	}

	role := mongo.IndexModel{Keys: bson.D{{Key: "role", Value: 1}}, Options: options.Index().SetName("role_1")}
	if _, err := users.Indexes().CreateOne(ctx, role); err != nil {
		errs = append(errs, fmt.Errorf("ensure %s role index: %w", userCollection, err))
	}

	surveys := []mongo.IndexModel{
		{Keys: bson.D{{Key: "totalVote", Value: -1}}, Options: options.Index().SetName("totalVote_-1")},
		{Keys: bson.D{{Key: "topVote", Value: -1}}, Options: options.Index().SetName("topVote_-1")},
	}
	if _, err := db.Collection(surveyCollection).Indexes().CreateMany(ctx, surveys); err != nil {
		errs = append(errs, fmt.Errorf("ensure %s indexes: %w", surveyCollection, err))
	}
	return errors.Join(errs...)
}

// ensureEmailIndex は email の単一キーインデックスを確認する。非一意モードでは既存のものを
// そのまま使い、一意モードでは既存のインデックスが一意でなければエラーにする。
func ensureEmailIndex(ctx context.Context, coll *mongo.Collection, unique bool) error {
	specs, err := coll.Indexes().ListSpecifications(ctx)
	if err != nil && !isNamespaceNotFound(err) {
		return fmt.Errorf("list indexes: %w", err)
	}

	if existing := findEmailIndex(specs); existing != nil {
		if !unique || (existing.Unique != nil && *existing.Unique) {
			return nil
		}
		return fmt.Errorf("index %q on email is not unique; drop it and remove duplicate emails before enabling atomic writes", existing.Name)
	}

	indexOptions := options.Index().SetName(emailIndexName)
	if unique {
		indexOptions.SetUnique(true)
	}
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: indexOptions,
	})
	return err
}

func findEmailIndex(specs []*mongo.IndexSpecification) *mongo.IndexSpecification {
	for _, spec := range specs {
		elems, err := spec.KeysDocument.Elements()
		if err != nil || len(elems) != 1 {
			continue
		}
		if elems[0].Key() == "email" {
			return spec
		}
	}
	return nil
}

func isNamespaceNotFound(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == namespaceNotFound
}
