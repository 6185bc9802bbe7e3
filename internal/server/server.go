package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sngm3741/survey-haven/api/internal/auth"
	"github.com/sngm3741/survey-haven/api/internal/config"
	mongostore "github.com/sngm3741/survey-haven/api/internal/infrastructure/mongo"
	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/authhttp"
	commonhttp "github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
	surveyhttp "github.com/sngm3741/survey-haven/api/internal/interfaces/http/surveys"
	userhttp "github.com/sngm3741/survey-haven/api/internal/interfaces/http/users"
	"github.com/sngm3741/survey-haven/api/internal/ratelimit"
	surveyapp "github.com/sngm3741/survey-haven/api/internal/survey/application"
	userapp "github.com/sngm3741/survey-haven/api/internal/user/application"
)

// Server は HTTP サーバーのライフサイクルを管理し、各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *log.Logger
	client         *mongo.Client
	database       *mongo.Database
	limiter        *ratelimit.FixedWindowLimiter
	directory      userapp.Directory
	surveys        surveyapp.Store
	issuer         *auth.Issuer
	verifier       *auth.Verifier
	ping           func(ctx context.Context) error
	addr           string
	allowedOrigins []string
	requestTimeout time.Duration

	userCollection   string
	surveyCollection string
	uniqueEmail      bool
}

// Run は起動時のインデックス作成を行った上で HTTP サーバーを起動し、シグナル受信まで待機する。
// アトミック書き込み時に一意の email インデックスを用意できない場合は起動しない。
func (s *Server) Run() error {
	if err := s.prepareIndexes(context.Background()); err != nil {
		s.shutdown(context.Background())
		return err
	}

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	return waitForShutdown(httpServer, errChan, s)
}

// Router はミドルウェアと全ルートを組み立てた http.Handler を返す。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/", s.rootHandler())
	router.Get("/healthz", s.healthHandler())

	guard := authhttp.NewGuard(s.logger, s.verifier, s.directory, s.requestTimeout)
	authhttp.NewHandler(s.logger, s.issuer).Register(router)

	userhttp.NewHandler(userhttp.Config{
		Logger:    s.logger,
		Directory: s.directory,
		Timeout:   s.requestTimeout,
	}).Register(router, guard)

	var limiter commonhttp.Limiter
	if s.limiter != nil {
		limiter = s.limiter
	}
	surveyhttp.NewHandler(surveyhttp.Config{
		Logger:  s.logger,
		Store:   s.surveys,
		Timeout: s.requestTimeout,
	}).Register(router, guard, commonhttp.RateLimit(s.logger, limiter))

	return router
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

func (s *Server) rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("server is running"))
	}
}

// healthHandler は MongoDB への疎通確認を行い、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.ping(ctx); err != nil {
			s.logger.Printf("health check failed: %v", err)
			commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
			})
			return
		}

		commonhttp.WriteJSON(s.logger, w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// prepareIndexes はインデックスを作成する。失敗はログに残すだけだが、アトミック書き込みが
// 依存する一意の email インデックスが無い場合はエラーを返す。
func (s *Server) prepareIndexes(ctx context.Context) error {
	err := s.ensureIndexes(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, mongostore.ErrUniqueEmailIndex) {
		return fmt.Errorf("atomic writes require a unique users.email index (set ATOMIC_WRITES=false to run without it): %w", err)
	}
	s.logger.Printf("インデックスの作成に失敗しました: %v", err)
	return nil
}

func (s *Server) ensureIndexes(ctx context.Context) error {
	if s.database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return mongostore.EnsureIndexes(ctx, s.database, s.userCollection, s.surveyCollection, mongostore.IndexOptions{
		UniqueEmail: s.uniqueEmail,
	})
}

// shutdown は MongoDB クライアントと Redis 接続をタイムアウト付きで閉じる。
func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if s.client != nil {
		if err := s.client.Disconnect(shutdownCtx); err != nil {
			s.logger.Printf("MongoDB 切断時にエラー: %v", err)
		}
	}
	if s.limiter != nil {
		if err := s.limiter.Close(); err != nil {
			s.logger.Printf("Redis 切断時にエラー: %v", err)
		}
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background())
	return runErr
}

// New は Config と Mongo クライアントを受け取り、アプリケーションサービスとハンドラを組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client) *Server {
	database := client.Database(cfg.MongoDatabase)

	userRepo := mongostore.NewUserRepository(database, cfg.UserCollection)
	surveyRepo := mongostore.NewSurveyRepository(database, cfg.SurveyCollection)

	srv := &Server{
		logger:   cfg.ServerLog,
		client:   client,
		database: database,
		directory: userapp.NewDirectory(userRepo, userapp.Options{
			AtomicWrites: cfg.AtomicWrites,
		}),
		surveys: surveyapp.NewStore(surveyRepo, surveyapp.Options{
			AtomicWrites: cfg.AtomicWrites,
			RankField:    cfg.RankField,
			TopLimit:     cfg.TopLimit,
		}),
		issuer:   auth.NewIssuer(cfg.Token.Secret, cfg.Token.TTL),
		verifier: auth.NewVerifier(cfg.Token.Secret),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		addr:             cfg.Addr,
		allowedOrigins:   append([]string(nil), cfg.AllowedOrigins...),
		requestTimeout:   cfg.RequestTimeout,
		userCollection:   cfg.UserCollection,
		surveyCollection: cfg.SurveyCollection,
		uniqueEmail:      cfg.AtomicWrites,
	}

	if cfg.RateLimit.Enabled() {
		limiter, err := ratelimit.NewFixedWindowLimiter(
			cfg.RateLimit.RedisAddr,
			cfg.RateLimit.RedisPassword,
			cfg.RateLimit.RedisPrefix,
			cfg.RateLimit.LimitPerMinute,
			time.Minute,
		)
		if err != nil {
			cfg.ServerLog.Printf("レート制限を無効化します: %v", err)
		} else {
			srv.limiter = limiter
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := limiter.Ping(ctx); err != nil {
				cfg.ServerLog.Printf("Redis に接続できません。制限は fail-open で動作します: %v", err)
			}
			cancel()
		}
	}

	return srv
}
