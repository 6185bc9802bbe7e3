package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	userapp "github.com/sngm3741/survey-haven/api/internal/user/application"
	"github.com/sngm3741/survey-haven/api/internal/user/domain"
)

// UserRepository は users コレクションを扱う実装リポジトリ。
type UserRepository struct {
	collection *mongo.Collection
}

var _ userapp.Repository = (*UserRepository)(nil)

// NewUserRepository は users コレクションを束縛したリポジトリを構築する。
func NewUserRepository(db *mongo.Database, collectionName string) *UserRepository {
	return &UserRepository{collection: db.Collection(collectionName)}
}

// Insert は重複チェックをせずにユーザーを 1 件挿入する。
func (r *UserRepository) Insert(ctx context.Context, user *domain.User) (shared.InsertResult, error) {
	doc := newUserDocument(user)
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return shared.InsertResult{}, err
	}
	user.ID = doc.ID.Hex()
	return shared.InsertResult{InsertedID: user.ID}, nil
}

// InsertIfAbsent は email をキーに $setOnInsert の upsert を行い、既存レコードがあれば何も書き込まない。
func (r *UserRepository) InsertIfAbsent(ctx context.Context, user *domain.User) (shared.InsertResult, bool, error) {
	onInsert := bson.M{"email": user.Email}
	for key, value := range withoutKeys(user.Profile, userReservedKeys) {
		onInsert[key] = value
	}
	if user.Role != domain.RoleNone {
		onInsert["role"] = string(user.Role)
	}

	filter := bson.M{"email": user.Email}
	update := bson.M{"$setOnInsert": onInsert}

	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// 同時 upsert の片方は一意インデックス違反になる。既存扱いにする。
		if mongo.IsDuplicateKeyError(err) {
			return shared.InsertResult{}, false, nil
		}
		return shared.InsertResult{}, false, err
	}
	if result.UpsertedCount == 0 {
		return shared.InsertResult{}, false, nil
	}

	user.ID = objectIDString(result.UpsertedID)
	return shared.InsertResult{InsertedID: user.ID}, true, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var doc UserDocument
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user := doc.toDomain()
	return &user, nil
}

// Find は role が指定されていればその値で絞り込み、全件を返す。
func (r *UserRepository) Find(ctx context.Context, filter userapp.Filter) ([]domain.User, error) {
	mongoFilter := bson.M{}
	if role := strings.TrimSpace(filter.Role); role != "" {
		mongoFilter["role"] = role
	}

	cursor, err := r.collection.Find(ctx, mongoFilter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]domain.User, 0)
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole は role フィールドだけを上書きする。対象が無くてもエラーにはせず件数で返す。
func (r *UserRepository) SetRole(ctx context.Context, id string, role domain.Role) (shared.UpdateResult, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return shared.UpdateResult{}, err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": string(role)}})
	if err != nil {
		return shared.UpdateResult{}, err
	}
	return toUpdateResult(result), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (shared.DeleteResult, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return shared.DeleteResult{}, err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return shared.DeleteResult{}, err
	}
	return shared.DeleteResult{DeletedCount: result.DeletedCount}, nil
}

func newUserDocument(user *domain.User) UserDocument {
	return UserDocument{
		Email:   user.Email,
		Role:    string(user.Role),
		Profile: withoutKeys(user.Profile, userReservedKeys),
	}
}

func (d UserDocument) toDomain() domain.User {
	return domain.User{
		ID:      d.ID.Hex(),
		Email:   d.Email,
		Role:    domain.Role(d.Role),
		Profile: plainMap(d.Profile),
	}
}

func toUpdateResult(result *mongo.UpdateResult) shared.UpdateResult {
	return shared.UpdateResult{
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
		UpsertedCount: result.UpsertedCount,
		UpsertedID:    objectIDString(result.UpsertedID),
	}
}
