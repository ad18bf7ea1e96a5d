package router

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"task-manager/internal/domain"
	"task-manager/internal/service"
	httpez "task-manager/internal/transport/http/ez"
	mdw "task-manager/internal/transport/http/middleware"
	resp "task-manager/internal/transport/http/response"
)

const (
	avatarMaxBytes = 10 << 20 // 10 MB
	avatarCacheTTL = 5 * time.Minute
)

type userWithToken struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func mountUserActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	// 注册
	type registerIn struct {
		Name     string `json:"name"     binding:"required"`
		Email    string `json:"email"    binding:"required,email"`
		Age      int    `json:"age"      binding:"omitempty,gte=0"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[registerIn, userWithToken]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (userWithToken, error) {
			u, token, err := d.Accounts.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Age: in.Age, Password: in.Password,
			})
			if err != nil {
				return userWithToken{}, err
			}
			return userWithToken{User: u, Token: token}, nil
		},
	})

	// 登录
	type loginIn struct {
		Email    string `json:"email"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction(ezPublic, httpez.Action[loginIn, userWithToken]{
		Method: http.MethodPost,
		Path:   "/users/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (userWithToken, error) {
			u, token, err := d.Accounts.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return userWithToken{}, err
			}
			return userWithToken{User: u, Token: token}, nil
		},
	})

	// 登出：只撤销当前请求用的这一个令牌
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, struct{}]{
		Method: http.MethodPost,
		Path:   "/users/logout",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			u := mdw.CurrentUser(c)
			return struct{}{}, d.Accounts.Logout(c.Request.Context(), u.ID, mdw.CurrentToken(c))
		},
	})

	// 全部登出
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, struct{}]{
		Method: http.MethodPost,
		Path:   "/users/logoutAll",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			u := mdw.CurrentUser(c)
			return struct{}{}, d.Accounts.LogoutAll(c.Request.Context(), u.ID)
		},
	})

	// 个人档案
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/profile",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return mdw.CurrentUser(c), nil
		},
	})

	// 改档案：只能改自己，字段白名单在 service 层
	httpez.RegisterAction(ezAuth, httpez.Action[map[string]any, *domain.User]{
		Method: http.MethodPatch,
		Path:   "/users/:id",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *map[string]any) (*domain.User, error) {
			u := mdw.CurrentUser(c)
			return d.Accounts.UpdateUser(c.Request.Context(), u.ID, c.Param("id"), *in)
		},
	})

	// 注销账户：级联删任务，补发告别邮件
	httpez.RegisterAction(ezAuth, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			u := mdw.CurrentUser(c)
			deleted, err := d.Accounts.DeleteUser(c.Request.Context(), u.ID, c.Param("id"))
			if err != nil {
				return nil, err
			}
			if d.Cache != nil {
				d.Cache.Invalidate(c.Request.Context(), avatarKey(u.ID))
			}
			return deleted, nil
		},
	})

	// ---------- 头像（multipart，不走 ez） ----------

	authed.POST("/users/profile/avatar", func(c *gin.Context) {
		u := mdw.CurrentUser(c)

		fh, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "avatar file is required"))
			return
		}
		if fh.Size > avatarMaxBytes {
			c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "avatar exceeds 10MB"))
			return
		}
		switch strings.ToLower(filepath.Ext(fh.Filename)) {
		case ".jpg", ".jpeg", ".png":
		default:
			c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "please upload only jpg|jpeg|png"))
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, "unreadable upload"))
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, avatarMaxBytes))
		if err != nil {
			c.JSON(http.StatusInternalServerError, resp.Error(resp.CodeServerError, ""))
			return
		}

		if err := d.Accounts.SetAvatar(c.Request.Context(), u.ID, data); err != nil {
			httpez.WriteError(c, err)
			return
		}
		if d.Cache != nil {
			d.Cache.Invalidate(c.Request.Context(), avatarKey(u.ID))
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"uploaded": true}))
	})

	authed.DELETE("/users/profile/avatar", func(c *gin.Context) {
		u := mdw.CurrentUser(c)
		if err := d.Accounts.ClearAvatar(c.Request.Context(), u.ID); err != nil {
			httpez.WriteError(c, err)
			return
		}
		if d.Cache != nil {
			d.Cache.Invalidate(c.Request.Context(), avatarKey(u.ID))
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"deleted": true}))
	})

	// 公开头像，走 redis 读穿缓存
	api.GET("/users/:id/avatar", func(c *gin.Context) {
		id := c.Param("id")
		load := func(ctx context.Context) ([]byte, error) {
			return d.Accounts.GetAvatar(ctx, id)
		}

		var (
			data []byte
			err  error
		)
		if d.Cache != nil {
			data, err = d.Cache.GetOrLoad(c.Request.Context(), avatarKey(id), avatarCacheTTL, load)
		} else {
			data, err = load(c.Request.Context())
		}
		if err != nil {
			httpez.WriteError(c, err)
			return
		}
		c.Data(http.StatusOK, http.DetectContentType(data), data)
	})
}

func avatarKey(userID string) string { return "avatar:" + userID }
