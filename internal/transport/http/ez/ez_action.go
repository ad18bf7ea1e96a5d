package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-manager/internal/service"
	resp "task-manager/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON Binder = "json" // 从 JSON 绑定
	BindNone Binder = "none" // 不绑定，自己从 c.Param / c.Query 取
)

// Action 非 CRUD 一行注册：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PATCH" | "DELETE"
	Path    string
	Binder  Binder
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 统一处理参数绑定与错误映射。
// service 的四类哨兵错误映射到真实 HTTP 状态码；
// 内部错误只回 "Internal Server Error"，细节进日志不进响应。
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		if a.Binder == BindJSON {
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "invalid request body"))
				return
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			WriteError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// WriteError 哨兵错误 → 状态码。非哨兵一律按 500 处理
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, trimSentinel(err)))
	case errors.Is(err, service.ErrAuthentication):
		c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, trimSentinel(err)))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, ""))
	default:
		_ = c.Error(err) // 给 access log
		c.JSON(http.StatusInternalServerError, resp.Error(resp.CodeServerError, ""))
	}
}

// "validation error: xxx" → "xxx"，哨兵前缀不外露
func trimSentinel(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
