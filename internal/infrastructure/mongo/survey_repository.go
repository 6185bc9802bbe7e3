package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	surveyapp "github.com/sngm3741/survey-haven/api/internal/survey/application"
	"github.com/sngm3741/survey-haven/api/internal/survey/domain"
)

// SurveyRepository は surveys コレクションを扱う実装リポジトリ。
type SurveyRepository struct {
	collection *mongo.Collection
}

var _ surveyapp.Repository = (*SurveyRepository)(nil)

// NewSurveyRepository は surveys コレクションを束縛したリポジトリを構築する。
func NewSurveyRepository(db *mongo.Database, collectionName string) *SurveyRepository {
	return &SurveyRepository{collection: db.Collection(collectionName)}
}

func (r *SurveyRepository) Insert(ctx context.Context, survey *domain.Survey) (shared.InsertResult, error) {
	doc := newSurveyDocument(survey)
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return shared.InsertResult{}, err
	}
	survey.ID = doc.ID.Hex()
	return shared.InsertResult{InsertedID: survey.ID}, nil
}

// Find は全件をストアの自然順で返す。
func (r *SurveyRepository) Find(ctx context.Context) ([]domain.Survey, error) {
	return r.find(ctx, bson.M{})
}

// FindTop は rankField の降順で先頭 limit 件を返す。
func (r *SurveyRepository) FindTop(ctx context.Context, rankField string, limit int) ([]domain.Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: rankField, Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *SurveyRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]domain.Survey, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	surveys := make([]domain.Survey, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		surveys = append(surveys, surveyFromDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *SurveyRepository) FindByID(ctx context.Context, id string) (*domain.Survey, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	survey := surveyFromDocument(raw)
	return &survey, nil
}

// Upsert は固定フィールド群を $set で置き換え、対象が無ければその ID で新規作成する。
// comments/votes や未知のフィールドは触らない。
func (r *SurveyRepository) Upsert(ctx context.Context, id string, survey *domain.Survey) (shared.UpdateResult, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return shared.UpdateResult{}, err
	}

	set := bson.M{
		"name":        survey.Name,
		"email":       survey.Email,
		"title":       survey.Title,
		"description": survey.Description,
		"options":     survey.Options,
		"category":    survey.Category,
		"deadline":    survey.Deadline,
		"yesCount":    survey.YesCount,
		"noCount":     survey.NoCount,
		"totalVote":   survey.TotalVote,
		"status":      survey.Status,
		"date":        survey.Date,
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return shared.UpdateResult{}, err
	}
	return toUpdateResult(result), nil
}

func (r *SurveyRepository) Delete(ctx context.Context, id string) (shared.DeleteResult, error) {
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

// IncrementVote は選択肢のカウンタと totalVote を 1 ずつ増やし、更新後のドキュメントを返す。
// null や欠落したカウンタは 0 として加算する ($inc はそれらを拒否するためパイプライン更新を使う)。
func (r *SurveyRepository) IncrementVote(ctx context.Context, id string, choice domain.VoteChoice) (*domain.Survey, error) {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var counter string
	switch choice {
	case domain.VoteYes:
		counter = "yesCount"
	case domain.VoteNo:
		counter = "noCount"
	default:
		return nil, shared.ErrInvalidVote
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			counter:     incremented(counter),
			"totalVote": incremented("totalVote"),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	survey := surveyFromDocument(raw)
	return &survey, nil
}

func incremented(field string) bson.M {
	return bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + field, 0}}, 1}}
}

func (r *SurveyRepository) SetVoteCounts(ctx context.Context, id string, yes, no, total int) error {
	return r.updateExisting(ctx, id, bson.M{"$set": bson.M{
		"yesCount":  yes,
		"noCount":   no,
		"totalVote": total,
	}})
}

// PushComment は comments 配列の末尾に 1 件追加する。comments が配列でない (無い・null を含む)
// ドキュメントでは空配列から始めるようパイプライン更新で連結する。
func (r *SurveyRepository) PushComment(ctx context.Context, id string, comment any) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"comments": bson.M{"$concatArrays": bson.A{
				bson.M{"$cond": bson.A{bson.M{"$isArray": "$comments"}, "$comments", bson.A{}}},
				bson.A{bson.M{"$literal": comment}},
			}},
		}}},
	}
	return r.updateExisting(ctx, id, pipeline)
}

func (r *SurveyRepository) SetComments(ctx context.Context, id string, comments []any) error {
	if comments == nil {
		comments = []any{}
	}
	return r.updateExisting(ctx, id, bson.M{"$set": bson.M{"comments": bson.A(comments)}})
}

// updateExisting は upsert せずに 1 件更新し、対象が無ければ shared.ErrNotFound を返す。
func (r *SurveyRepository) updateExisting(ctx context.Context, id string, update any) error {
	oid, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update survey %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func newSurveyDocument(survey *domain.Survey) SurveyDocument {
	doc := SurveyDocument{
		Name:        survey.Name,
		Email:       survey.Email,
		Title:       survey.Title,
		Description: survey.Description,
		Options:     survey.Options,
		Category:    survey.Category,
		Deadline:    survey.Deadline,
		YesCount:    survey.YesCount,
		NoCount:     survey.NoCount,
		TotalVote:   survey.TotalVote,
		Status:      survey.Status,
		Date:        survey.Date,
		Comments:    bson.A(survey.Comments),
		Extra:       withoutKeys(survey.Extra, surveyReservedKeys),
	}
	if survey.Votes != nil {
		doc.Votes = &VoteTallyDocument{Yes: survey.Votes.Yes, No: survey.Votes.No}
	}
	return doc
}

// surveyFromDocument は保存済みドキュメントを型を問わず読み取る。記述系の項目は JSON 向けに
// 変換するだけで、カウンタは counterValue で数値に揃える。配列でない comments や
// 埋め込みドキュメントでない votes は Extra に残してそのまま返す。
func surveyFromDocument(raw bson.M) domain.Survey {
	fields := plainMap(raw)
	survey := domain.Survey{
		ID:          objectIDString(raw["_id"]),
		Name:        fields["name"],
		Email:       fields["email"],
		Title:       fields["title"],
		Description: fields["description"],
		Options:     fields["options"],
		Category:    fields["category"],
		Deadline:    fields["deadline"],
		YesCount:    counterValue(raw["yesCount"]),
		NoCount:     counterValue(raw["noCount"]),
		TotalVote:   counterValue(raw["totalVote"]),
		Status:      fields["status"],
		Date:        fields["date"],
	}

	for key, value := range fields {
		if !isSurveyReservedKey(key) {
			putExtra(&survey, key, value)
		}
	}

	switch comments := fields["comments"].(type) {
	case nil:
	case []any:
		survey.Comments = comments
	default:
		putExtra(&survey, "comments", comments)
	}

	if tally, ok := embeddedDocument(raw["votes"]); ok {
		survey.Votes = &domain.VoteTally{Yes: counterValue(tally["yes"]), No: counterValue(tally["no"])}
	} else if legacy := fields["votes"]; legacy != nil {
		putExtra(&survey, "votes", legacy)
	}
	return survey
}

func isSurveyReservedKey(key string) bool {
	for _, reserved := range surveyReservedKeys {
		if key == reserved {
			return true
		}
	}
	return false
}

func putExtra(survey *domain.Survey, key string, value any) {
	if survey.Extra == nil {
		survey.Extra = make(map[string]any)
	}
	survey.Extra[key] = value
}
