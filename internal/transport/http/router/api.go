package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"task-manager/internal/core/auth"
	"task-manager/internal/core/cache"
	"task-manager/internal/domain"
	"task-manager/internal/service"
	mdw "task-manager/internal/transport/http/middleware"
)

type Deps struct {
	Log      *zap.Logger
	Users    domain.UserRepository
	Accounts *service.AccountService
	Tasks    *service.TaskService
	JWTer    *auth.JWTer
	Cache    *cache.Cache
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		cors.Default(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// 鉴权分组：Bearer 令牌 + 会话集合校验
	authed := api.Group("", mdw.AuthSession(d.JWTer, d.Users))

	mountUserActions(api, authed, d)
	mountTaskActions(authed, d)

	return r
}
