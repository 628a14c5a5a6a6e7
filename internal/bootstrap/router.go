package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/adorable-labs/adorable-backend/internal/api/http"
	"github.com/adorable-labs/adorable-backend/internal/auth"
	"github.com/adorable-labs/adorable-backend/internal/projects/repository"
	"github.com/adorable-labs/adorable-backend/internal/session"
)

type RouterDeps struct {
	ServiceName   string
	Version       string
	DB            *pgxpool.Pool
	Redis         *redis.Client
	WorkspaceRoot string
	Verifier      auth.Verifier
	Workspaces    session.Workspaces
	Engine        session.Engine
	Tracker       session.Tracker
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
		auth.HeaderAccessToken, auth.HeaderRefreshToken, auth.HeaderUserID, auth.HeaderProjectID)
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis, dep.WorkspaceRoot)
	healthHandler.RegisterRoutes(r)

	projectRepo := repository.NewProjectRepository(dep.DB)
	chatRepo := repository.NewChatRepository(dep.DB)

	orchestrator := session.NewOrchestrator(projectRepo, chatRepo, dep.Workspaces, dep.Engine, dep.Tracker)

	api := r.Group("/api/v1")
	api.Use(auth.Gate(dep.Verifier))

	handler := httpapi.New(orchestrator, projectRepo, chatRepo)
	handler.Register(api)

	return r
}
