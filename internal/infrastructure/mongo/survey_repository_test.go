package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/survey/domain"
)

func surveyRecord(id primitive.ObjectID, title string, yes, no, total int32) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Rahim"},
		{Key: "email", Value: "rahim@x.io"},
		{Key: "title", Value: title},
		{Key: "description", Value: "d"},
		{Key: "options", Value: bson.A{"yes", "no"}},
		{Key: "category", Value: "tech"},
		{Key: "deadline", Value: "2024-01-01"},
		{Key: "yesCount", Value: yes},
		{Key: "noCount", Value: no},
		{Key: "totalVote", Value: total},
		{Key: "status", Value: "publish"},
		{Key: "date", Value: "2023-12-01"},
	}
}

func TestSurveyRepositoryFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes fixed and extra fields", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		oid := primitive.NewObjectID()
		record := append(surveyRecord(oid, "Tabs or spaces", 2, 1, 3),
			bson.E{Key: "comments", Value: bson.A{"first", bson.D{{Key: "text", Value: "second"}}}},
			bson.E{Key: "topVote", Value: int32(9)},
		)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, record))

		survey, err := repo.FindByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, oid.Hex(), survey.ID)
		assert.Equal(mt, "Tabs or spaces", survey.Title)
		assert.Equal(mt, []any{"yes", "no"}, survey.Options)
		assert.Equal(mt, 2, survey.YesCount)
		assert.Equal(mt, 1, survey.NoCount)
		assert.Equal(mt, 3, survey.TotalVote)
		assert.Equal(mt, []any{"first", map[string]any{"text": "second"}}, survey.Comments)
		assert.Equal(mt, int32(9), survey.Extra["topVote"])
		assert.Nil(mt, survey.Votes)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, shared.ErrNotFound)
	})

	mt.Run("malformed id", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())

		_, err := repo.FindByID(context.Background(), "xyz")
		assert.ErrorIs(mt, err, shared.ErrInvalidID)
	})
}

func TestSurveyRepositoryReadsIrregularRecords(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	deadline := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	decimal, err := primitive.ParseDecimal128("7")
	require.NoError(t, err)

	irregular := bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "name", Value: int32(5)},
		{Key: "title", Value: bson.D{{Key: "en", Value: "Tabs?"}}},
		{Key: "options", Value: bson.D{{Key: "a", Value: "yes"}}},
		{Key: "deadline", Value: primitive.NewDateTimeFromTime(deadline)},
		{Key: "yesCount", Value: 1.5},
		{Key: "noCount", Value: nil},
		{Key: "totalVote", Value: decimal},
		{Key: "status", Value: true},
		{Key: "comments", Value: "closed"},
		{Key: "votes", Value: bson.D{{Key: "yes", Value: int64(3)}, {Key: "no", Value: "n/a"}}},
	}
	legacyVotes := bson.D{
		{Key: "_id", Value: "string-id"},
		{Key: "votes", Value: "hidden"},
	}

	mt.Run("find keeps every record", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			irregular,
			legacyVotes,
			surveyRecord(primitive.NewObjectID(), "regular", 1, 0, 1),
		))

		surveys, err := repo.Find(context.Background())
		require.NoError(mt, err)
		require.Len(mt, surveys, 3)

		first := surveys[0]
		assert.Equal(mt, int32(5), first.Name)
		assert.Equal(mt, map[string]any{"en": "Tabs?"}, first.Title)
		assert.Equal(mt, map[string]any{"a": "yes"}, first.Options)
		assert.Equal(mt, "2024-01-01T00:00:00Z", first.Deadline)
		assert.Equal(mt, true, first.Status)
		assert.Nil(mt, first.Email)
		assert.Equal(mt, 1, first.YesCount)
		assert.Equal(mt, 0, first.NoCount)
		assert.Equal(mt, 7, first.TotalVote)
		assert.Nil(mt, first.Comments)
		assert.Equal(mt, "closed", first.Extra["comments"])
		require.NotNil(mt, first.Votes)
		assert.Equal(mt, domain.VoteTally{Yes: 3, No: 0}, *first.Votes)

		second := surveys[1]
		assert.Equal(mt, "string-id", second.ID)
		assert.Nil(mt, second.Votes)
		assert.Equal(mt, "hidden", second.Extra["votes"])
		assert.Nil(mt, second.WithDefaultTally().Votes)

		assert.Equal(mt, "regular", surveys[2].Title)
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, irregular))

		survey, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.Equal(mt, map[string]any{"a": "yes"}, survey.Options)
	})
}

func TestSurveyRepositoryFindTop(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	for _, field := range []string{"totalVote", "topVote"} {
		mt.Run(field, func(mt *mtest.T) {
			repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
			mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
				surveyRecord(primitive.NewObjectID(), "a", 5, 0, 5),
				surveyRecord(primitive.NewObjectID(), "b", 1, 1, 2),
			))

			surveys, err := repo.FindTop(context.Background(), field, 6)
			require.NoError(mt, err)
			require.Len(mt, surveys, 2)

			started := mt.GetStartedEvent()
			require.NotNil(mt, started)
			assert.Equal(mt, "find", started.CommandName)
			direction, err := started.Command.LookupErr("sort", field)
			require.NoError(mt, err)
			assert.Equal(mt, int64(-1), direction.AsInt64())
			limit, err := started.Command.LookupErr("limit")
			require.NoError(mt, err)
			assert.Equal(mt, int64(6), limit.AsInt64())
		})
	}
}

func TestSurveyRepositoryIncrementVote(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns updated record", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: surveyRecord(oid, "t", 3, 1, 4)},
		))

		survey, err := repo.IncrementVote(context.Background(), oid.Hex(), domain.VoteYes)
		require.NoError(mt, err)
		assert.Equal(mt, 3, survey.YesCount)
		assert.Equal(mt, 4, survey.TotalVote)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)
		_, err = started.Command.LookupErr("update", "0", "$set", "yesCount", "$add")
		assert.NoError(mt, err)
		_, err = started.Command.LookupErr("update", "0", "$set", "totalVote", "$add")
		assert.NoError(mt, err)
		missingAsZero, err := started.Command.LookupErr("update", "0", "$set", "yesCount", "$add", "0", "$ifNull", "1")
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), missingAsZero.AsInt64())
		returnNew, err := started.Command.LookupErr("new")
		require.NoError(mt, err)
		assert.True(mt, returnNew.Boolean())
	})

	mt.Run("no counter", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: surveyRecord(oid, "t", 2, 2, 4)},
		))

		_, err := repo.IncrementVote(context.Background(), oid.Hex(), domain.VoteNo)
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		_, err = started.Command.LookupErr("update", "0", "$set", "noCount", "$add")
		assert.NoError(mt, err)
		_, err = started.Command.LookupErr("update", "0", "$set", "yesCount")
		assert.Error(mt, err)
	})

	mt.Run("null counters in the returned record read as numbers", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "yesCount", Value: int32(1)},
			{Key: "noCount", Value: nil},
			{Key: "totalVote", Value: int64(1)},
		}}))

		survey, err := repo.IncrementVote(context.Background(), oid.Hex(), domain.VoteYes)
		require.NoError(mt, err)
		assert.Equal(mt, 1, survey.YesCount)
		assert.Equal(mt, 0, survey.NoCount)
		assert.Equal(mt, 1, survey.TotalVote)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.IncrementVote(context.Background(), primitive.NewObjectID().Hex(), domain.VoteYes)
		assert.ErrorIs(mt, err, shared.ErrNotFound)
	})
}

func TestSurveyRepositoryComments(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("push", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.PushComment(context.Background(), primitive.NewObjectID().Hex(), "nice")
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		_, err = started.Command.LookupErr("updates", "0", "u", "0", "$set", "comments", "$concatArrays", "0", "$cond")
		assert.NoError(mt, err)
		literal, err := started.Command.LookupErr("updates", "0", "u", "0", "$set", "comments", "$concatArrays", "1", "0", "$literal")
		require.NoError(mt, err)
		assert.Equal(mt, "nice", literal.StringValue())
	})

	mt.Run("push to missing survey", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.PushComment(context.Background(), primitive.NewObjectID().Hex(), "nice")
		assert.ErrorIs(mt, err, shared.ErrNotFound)
	})

	mt.Run("set", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.SetComments(context.Background(), primitive.NewObjectID().Hex(), []any{"a", "b"})
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		comments, err := started.Command.LookupErr("updates", "0", "u", "$set", "comments", "1")
		require.NoError(mt, err)
		assert.Equal(mt, "b", comments.StringValue())
	})
}

func TestSurveyRepositoryUpsert(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates at given id", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: oid}}}},
		))

		result, err := repo.Upsert(context.Background(), oid.Hex(), &domain.Survey{Title: "new"})
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), result.MatchedCount)
		assert.Equal(mt, int64(1), result.UpsertedCount)
		assert.Equal(mt, oid.Hex(), result.UpsertedID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		title, err := started.Command.LookupErr("updates", "0", "u", "$set", "title")
		require.NoError(mt, err)
		assert.Equal(mt, "new", title.StringValue())
		_, err = started.Command.LookupErr("updates", "0", "u", "$set", "comments")
		assert.Error(mt, err)
	})

	mt.Run("replaces existing", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		survey := &domain.Survey{Title: "t", Options: map[string]any{"a": "yes"}, Deadline: 20240101.0}
		result, err := repo.Upsert(context.Background(), primitive.NewObjectID().Hex(), survey)
		require.NoError(mt, err)
		assert.Equal(mt, int64(1), result.MatchedCount)
		assert.Equal(mt, int64(1), result.ModifiedCount)
		assert.Empty(mt, result.UpsertedID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		option, err := started.Command.LookupErr("updates", "0", "u", "$set", "options", "a")
		require.NoError(mt, err)
		assert.Equal(mt, "yes", option.StringValue())
		deadline, err := started.Command.LookupErr("updates", "0", "u", "$set", "deadline")
		require.NoError(mt, err)
		assert.Equal(mt, 20240101.0, deadline.Double())
		category, err := started.Command.LookupErr("updates", "0", "u", "$set", "category")
		require.NoError(mt, err)
		assert.Equal(mt, bson.TypeNull, category.Type)
	})
}

func TestSurveyRepositoryInsertAndDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		survey := &domain.Survey{Title: "t", Extra: map[string]any{"_id": "caller", "audience": "all"}}
		result, err := repo.Insert(context.Background(), survey)
		require.NoError(mt, err)
		assert.NotEqual(mt, "caller", result.InsertedID)
		assert.Equal(mt, result.InsertedID, survey.ID)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		audience, err := started.Command.LookupErr("documents", "0", "audience")
		require.NoError(mt, err)
		assert.Equal(mt, "all", audience.StringValue())
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewSurveyRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		result, err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), result.DeletedCount)
	})
}

func indexSpec(key string, unique bool) bson.D {
	spec := bson.D{
		{Key: "v", Value: int32(2)},
		{Key: "key", Value: bson.D{{Key: key, Value: int32(1)}}},
		{Key: "name", Value: key + "_1"},
	}
	if unique {
		spec = append(spec, bson.E{Key: "unique", Value: true})
	}
	return spec
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	usersNS := func(mt *mtest.T) string { return mt.DB.Name() + ".users" }

	mt.Run("creates the unique email index under a stable name", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, indexSpec("_id", false)),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := EnsureIndexes(context.Background(), mt.DB, "users", "surveys", IndexOptions{UniqueEmail: true})
		require.NoError(mt, err)

		listed := mt.GetStartedEvent()
		require.NotNil(mt, listed)
		assert.Equal(mt, "listIndexes", listed.CommandName)

		created := mt.GetStartedEvent()
		require.NotNil(mt, created)
		assert.Equal(mt, "createIndexes", created.CommandName)
		name, err := created.Command.LookupErr("indexes", "0", "name")
		require.NoError(mt, err)
		assert.Equal(mt, "email_1", name.StringValue())
		unique, err := created.Command.LookupErr("indexes", "0", "unique")
		require.NoError(mt, err)
		assert.True(mt, unique.Boolean())

		role := mt.GetStartedEvent()
		require.NotNil(mt, role)
		roleName, err := role.Command.LookupErr("indexes", "0", "name")
		require.NoError(mt, err)
		assert.Equal(mt, "role_1", roleName.StringValue())
	})

	mt.Run("literal mode reuses an existing unique index", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, indexSpec("email", true)),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := EnsureIndexes(context.Background(), mt.DB, "users", "surveys", IndexOptions{})
		require.NoError(mt, err)

		mt.GetStartedEvent()
		next := mt.GetStartedEvent()
		require.NotNil(mt, next)
		name, err := next.Command.LookupErr("indexes", "0", "name")
		require.NoError(mt, err)
		assert.Equal(mt, "role_1", name.StringValue())
	})

	mt.Run("atomic mode rejects an existing non-unique index", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch, indexSpec("email", false)),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := EnsureIndexes(context.Background(), mt.DB, "users", "surveys", IndexOptions{UniqueEmail: true})
		assert.ErrorIs(mt, err, ErrUniqueEmailIndex)
	})

	mt.Run("duplicate emails block the unique index without stopping the others", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch),
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11000,
				Message: "index build failed",
				Name:    "DuplicateKey",
			}),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := EnsureIndexes(context.Background(), mt.DB, "users", "surveys", IndexOptions{UniqueEmail: true})
		assert.ErrorIs(mt, err, ErrUniqueEmailIndex)

		var commands []string
		for event := mt.GetStartedEvent(); event != nil; event = mt.GetStartedEvent() {
			commands = append(commands, event.CommandName)
		}
		assert.Equal(mt, []string{"listIndexes", "createIndexes", "createIndexes", "createIndexes"}, commands)
	})

	mt.Run("secondary failures are reported but not as the email index", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, usersNS(mt), mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 85, Name: "IndexOptionsConflict", Message: "conflict"}),
		)

		err := EnsureIndexes(context.Background(), mt.DB, "users", "surveys", IndexOptions{UniqueEmail: true})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrUniqueEmailIndex)
	})
}
