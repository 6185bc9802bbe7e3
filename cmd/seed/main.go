package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongostore "github.com/sngm3741/survey-haven/api/internal/infrastructure/mongo"
	surveydomain "github.com/sngm3741/survey-haven/api/internal/survey/domain"
	userdomain "github.com/sngm3741/survey-haven/api/internal/user/domain"
)

type seedOptions struct {
	envName         string
	userCount       int
	surveyorCount   int
	surveyCount     int
	dropCollections bool
	randomSeed      int64
}

type collections struct {
	users   string
	surveys string
}

var (
	categories = []string{"Technology", "Health", "Education", "Entertainment", "Food", "Travel", "Sports"}
	statuses   = []string{"publish", "publish", "publish", "unpublish"}
	firstNames = []string{"Rahim", "Karim", "Ayesha", "Nadia", "Tanvir", "Sadia", "Imran", "Farhana", "Arif", "Mitu"}
	topics     = []string{
		"remote work", "electric cars", "online classes", "street food", "morning workouts",
		"public transport", "video games", "social media", "mobile payments", "weekend trips",
	}
	comments = []string{
		"Interesting question!", "I was not sure what to pick.", "Would love to see the results.",
		"Great survey.", "This needs more options.", "Shared with my friends.",
	}
)

func main() {
	opts := parseFlags()

	if err := loadEnvFiles(opts.envName); err != nil {
		log.Fatalf("環境変数の読み込みに失敗しました: %v", err)
	}

	cfg := collections{
		users:   envOrDefault("USER_COLLECTION", "users"),
		surveys: envOrDefault("SURVEY_COLLECTION", "surveys"),
	}

	mongoURI := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	dbName := envOrDefault("MONGO_DB", "SurveyDb")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(dbName)

	if opts.dropCollections {
		if err := dropCollections(ctx, db, cfg); err != nil {
			log.Fatalf("コレクション削除に失敗しました: %v", err)
		}
		log.Printf("既存コレクションを削除しました")
	}

	if err := mongostore.EnsureIndexes(ctx, db, cfg.users, cfg.surveys, mongostore.IndexOptions{UniqueEmail: true}); err != nil {
		log.Fatalf("インデックス作成に失敗しました: %v", err)
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))

	users := generateUsers(rng, opts.surveyorCount, opts.userCount)
	userRepo := mongostore.NewUserRepository(db, cfg.users)
	created := 0
	for i := range users {
		if _, ok, err := userRepo.InsertIfAbsent(ctx, &users[i]); err != nil {
			log.Fatalf("ユーザーの挿入に失敗しました: %v", err)
		} else if ok {
			created++
		}
	}

	surveyors := make([]userdomain.User, 0, opts.surveyorCount)
	for _, user := range users {
		if user.Role == userdomain.RoleSurveyor {
			surveyors = append(surveyors, user)
		}
	}

	surveys := generateSurveys(rng, surveyors, opts.surveyCount, time.Now())
	surveyRepo := mongostore.NewSurveyRepository(db, cfg.surveys)
	for i := range surveys {
		if _, err := surveyRepo.Insert(ctx, &surveys[i]); err != nil {
			log.Fatalf("アンケートの挿入に失敗しました: %v", err)
		}
	}

	log.Printf("Seed 完了: users=%d (new=%d) surveys=%d", len(users), created, len(surveys))
	log.Printf("Mongo: %s / %s (env=%s)", redactURI(mongoURI), dbName, opts.envName)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envName, "env", "local", "env ディレクトリ内の env ファイル名 (例: local, staging)")
	flag.IntVar(&opts.userCount, "users", 20, "生成する一般ユーザー数")
	flag.IntVar(&opts.surveyorCount, "surveyors", 3, "生成する surveyor 数")
	flag.IntVar(&opts.surveyCount, "surveys", 30, "生成するアンケート数")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()

	if opts.surveyorCount <= 0 {
		log.Fatal("surveyors は 1 以上を指定してください")
	}
	if opts.userCount < 0 {
		opts.userCount = 0
	}
	if opts.surveyCount < 0 {
		opts.surveyCount = 0
	}
	return opts
}

// loadEnvFiles は .env と env/<name>.env を順に読み込む。存在しないファイルは無視する。
func loadEnvFiles(envName string) error {
	files := []string{".env", filepath.Join("env", fmt.Sprintf("%s.env", envName))}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s の読み込みに失敗しました: %w", file, err)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func dropCollections(ctx context.Context, db *mongo.Database, cfg collections) error {
	for _, name := range []string{cfg.users, cfg.surveys} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

// generateUsers は admin 1 名、surveyor、一般ユーザーの順に生成する。
func generateUsers(rng *rand.Rand, surveyorCount, userCount int) []userdomain.User {
	users := make([]userdomain.User, 0, 1+surveyorCount+userCount)
	users = append(users, userdomain.User{
		Email:   "admin@survey-haven.dev",
		Role:    userdomain.RoleAdmin,
		Profile: map[string]any{"name": "Admin"},
	})
	for i := 0; i < surveyorCount; i++ {
		users = append(users, newUser(rng, fmt.Sprintf("surveyor%d", i+1), userdomain.RoleSurveyor))
	}
	for i := 0; i < userCount; i++ {
		users = append(users, newUser(rng, fmt.Sprintf("user%d", i+1), userdomain.RoleNone))
	}
	return users
}

func newUser(rng *rand.Rand, handle string, role userdomain.Role) userdomain.User {
	name := firstNames[rng.Intn(len(firstNames))]
	return userdomain.User{
		Email: fmt.Sprintf("%s@survey-haven.dev", handle),
		Role:  role,
		Profile: map[string]any{
			"name":  name,
			"photo": fmt.Sprintf("https://i.pravatar.cc/150?u=%s", handle),
		},
	}
}

func generateSurveys(rng *rand.Rand, surveyors []userdomain.User, count int, now time.Time) []surveydomain.Survey {
	surveys := make([]surveydomain.Survey, 0, count)
	for i := 0; i < count; i++ {
		owner := surveyors[rng.Intn(len(surveyors))]
		topic := topics[rng.Intn(len(topics))]
		created := now.AddDate(0, 0, -rng.Intn(60))

		yes := rng.Intn(40)
		no := rng.Intn(40)
		survey := surveydomain.Survey{
			Name:        fmt.Sprint(owner.Profile["name"]),
			Email:       owner.Email,
			Title:       fmt.Sprintf("Do you enjoy %s?", topic),
			Description: fmt.Sprintf("A short poll about %s.", topic),
			Options:     []any{"yes", "no"},
			Category:    categories[rng.Intn(len(categories))],
			Deadline:    created.AddDate(0, 0, 30).Format("2006-01-02"),
			YesCount:    yes,
			NoCount:     no,
			TotalVote:   yes + no,
			Status:      statuses[rng.Intn(len(statuses))],
			Date:        created.Format("2006-01-02"),
		}
		for c := rng.Intn(4); c > 0; c-- {
			survey.AppendComment(comments[rng.Intn(len(comments))])
		}
		surveys = append(surveys, survey)
	}
	return surveys
}

// redactURI hides credentials before the URI is logged.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return uri
}
