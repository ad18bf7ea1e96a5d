package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"task-manager/internal/domain"
	"task-manager/internal/service"
	httpez "task-manager/internal/transport/http/ez"
	mdw "task-manager/internal/transport/http/middleware"
)

func mountTaskActions(authed *gin.RouterGroup, d Deps) {
	ezAuth := httpez.New(authed)

	// 新建：owner 永远取登录身份
	type createIn struct {
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	httpez.RegisterAction(ezAuth, httpez.Action[createIn, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *createIn) (*domain.Task, error) {
			u := mdw.CurrentUser(c)
			return d.Tasks.Create(c.Request.Context(), u.ID, in.Description, in.Completed)
		},
	})

	// 列表：GET /tasks?completed=true&sortBy=createdAt:desc&limit=10&skip=20
	// 分页参数不合法时静默放宽，不报错
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, []domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Task, error) {
			u := mdw.CurrentUser(c)
			return d.Tasks.ListOwned(c.Request.Context(), u.ID, service.ListParams{
				Completed: c.Query("completed"),
				SortBy:    c.Query("sortBy"),
				Limit:     c.Query("limit"),
				Skip:      c.Query("skip"),
			})
		},
	})

	// 单查
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Task, error) {
			u := mdw.CurrentUser(c)
			return d.Tasks.Get(c.Request.Context(), u.ID, c.Param("id"))
		},
	})

	// 改：字段白名单在 service 层，白名单外直接 400
	httpez.RegisterAction(ezAuth, httpez.Action[map[string]any, *domain.Task]{
		Method: http.MethodPatch,
		Path:   "/tasks/:id",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *map[string]any) (*domain.Task, error) {
			u := mdw.CurrentUser(c)
			return d.Tasks.Update(c.Request.Context(), u.ID, c.Param("id"), *in)
		},
	})

	// 删：返回被删的任务
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.Task]{
		Method: http.MethodDelete,
		Path:   "/tasks/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Task, error) {
			u := mdw.CurrentUser(c)
			return d.Tasks.Delete(c.Request.Context(), u.ID, c.Param("id"))
		},
	})
}
