package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ballotbox/internal/metrics"
	"github.com/hitoshi/ballotbox/internal/middleware"
)

// DBPinger はヘルスチェックで使用するデータベース疎通確認のインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusReporter    middleware.StatusReporter

	// サービス
	ElectionService ElectionServiceInterface
	VoterService    VoterServiceInterface
	VotingService   VotingServiceInterface

	// 運用系
	DB       DBPinger
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// 投票送信（POST /api/vote）には投票専用のレート制限を追加する。
// 管理系ルート（選挙作成・削除、投票者登録）はCoordinatorミドルウェアで保護する。
// /healthzと/metricsはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusReporter))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	electionHandler := NewElectionHandler(deps.ElectionService)
	voterHandler := NewVoterHandler(deps.VoterService)
	voteHandler := NewVoteHandler(deps.VotingService)

	// --- 運用系ルート（レート制限の外） ---

	r.Get("/healthz", healthzHandler(deps.DB))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- APIルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 投票者向け（認証なし、トークンとパスコードが資格情報）
		r.Route("/api/vote", func(r chi.Router) {
			// POST /api/vote - 投票送信（投票専用レート制限を追加）
			r.With(deps.RateLimiter.VoteMiddleware()).Post("/", voteHandler.SubmitVote)

			// GET /api/vote/{token} - 投票画面用の選挙情報
			r.Get("/{token}", voteHandler.GetBallot)
		})

		// コーディネーター向け
		r.Route("/api/elections", func(r chi.Router) {
			r.Use(middleware.NewCoordinatorMiddleware())

			r.Post("/", electionHandler.CreateElection)
			r.Get("/", electionHandler.ListElections)

			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", electionHandler.DeleteElection)
				r.Get("/results", electionHandler.GetResults)

				// 投票者登録
				r.Post("/voters", voterHandler.RegisterVoters)
				r.Get("/voters", voterHandler.ListVoters)
			})
		})
	})

	return r
}

// healthzHandler はデータベース疎通を含むヘルスチェックハンドラーを返す。
func healthzHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("healthcheck failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
