package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/iris-contrib/middleware/jwt"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/msaldanha/plasticine/appconfig"
	"github.com/msaldanha/plasticine/httpclient"
	"github.com/msaldanha/plasticine/persistent"
)

func (s *Server) buildHandlers() {
	j := jwt.New(jwt.Config{
		ValidationKeyGetter: func(token *jwt.Token) (interface{}, error) {
			return []byte(s.secret), nil
		},
		SigningMethod: jwt.SigningMethodHS256,
	})

	topLevel := s.app.Party("/")

	topLevel.Get(appconfig.DefaultFileName, s.getAppConfig)
	topLevel.Post("login", s.login)
	topLevel.Post("logout", j.Serve, s.logout)

	caches := topLevel.Party("/api/cache", j.Serve)
	caches.Get("/{scope:string}/{key:string}", s.getCacheItem)
	caches.Put("/{scope:string}/{key:string}", s.putCacheItem)
	caches.Delete("/{scope:string}/{key:string}", s.deleteCacheItem)
	caches.Delete("/{scope:string}", s.clearCache)

	if s.opts.StaticDir == "" {
		return
	}
	if _, er := os.Stat(s.opts.StaticDir); er != nil {
		s.logger.Warn("static files disabled", zap.String("dir", s.opts.StaticDir), zap.Error(er))
		return
	}
	s.app.HandleDir("/", iris.Dir(s.opts.StaticDir))
}

func (s *Server) getAppConfig(ctx iris.Context) {
	script, er := appconfig.Render(appconfig.ConfigName(s.opts.AppEnv), s.opts.AppEnv)
	if er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}
	ctx.ContentType("application/javascript")
	_, _ = ctx.WriteString(script)
}

func (s *Server) login(ctx iris.Context) {
	body := LoginRequest{}
	er := ctx.ReadJSON(&body)
	if er != nil {
		returnError(ctx, er, 400)
		return
	}

	if body.Password == "" {
		returnError(ctx, ErrEmptyPassword, getStatusCodeForError(ErrEmptyPassword))
		return
	}

	apiToken := ""
	if s.opts.Backend != nil {
		apiToken, er = s.backendLogin(ctx, body)
	} else if s.opts.AdminPassword == "" || body.Password != s.opts.AdminPassword {
		er = ErrAuthentication
	}
	if er != nil {
		s.logger.Info("login rejected", zap.String("username", body.Username), zap.Error(er))
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}

	tokenString, er := s.issueToken(body.Username)
	if er != nil {
		returnError(ctx, er, 500)
		return
	}
	if apiToken == "" {
		apiToken = tokenString
	}

	if er := s.auth.SetToken(apiToken); er != nil {
		s.logger.Warn("failed to store token", zap.Error(er))
	}

	_ = ctx.JSON(Response{Payload: tokenString})
}

func (s *Server) backendLogin(ctx iris.Context, body LoginRequest) (string, error) {
	result := LoginResult{}
	er := s.opts.Backend.Post(ctx.Request().Context(), "/login", body, &result, httpclient.WithoutToken())

	var re *httpclient.ResultError
	var se *httpclient.StatusError
	switch {
	case errors.As(er, &re):
		return "", fmt.Errorf("%w: %s", ErrAuthentication, re.Message)
	case errors.As(er, &se) && se.StatusCode == http.StatusUnauthorized:
		return "", ErrAuthentication
	case er != nil:
		return "", er
	case result.Token == "":
		return "", ErrAuthentication
	}
	return result.Token, nil
}

func (s *Server) sign(username string) (string, error) {
	token := jwt.NewTokenWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userClaim: username,
	})
	return token.SignedString([]byte(s.secret))
}

func (s *Server) logout(ctx iris.Context) {
	if er := s.auth.Clear(true); er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}
	ctx.StatusCode(204)
}

func (s *Server) getCacheItem(ctx iris.Context) {
	store, er := s.store(ctx)
	if er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}

	v, found := store.Get(ctx.Params().Get("key"))
	if !found {
		returnError(ctx, ErrNotFound, getStatusCodeForError(ErrNotFound))
		return
	}
	_ = ctx.JSON(Response{Payload: v})
}

func (s *Server) putCacheItem(ctx iris.Context) {
	store, er := s.store(ctx)
	if er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}

	body := CacheValue{}
	if er := ctx.ReadJSON(&body); er != nil {
		returnError(ctx, er, 400)
		return
	}

	if er := store.Set(ctx.Params().Get("key"), body.Value, persist(ctx)); er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}
	_ = ctx.JSON(Response{Payload: body.Value})
}

func (s *Server) deleteCacheItem(ctx iris.Context) {
	store, er := s.store(ctx)
	if er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}

	if er := store.Remove(ctx.Params().Get("key"), persist(ctx)); er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}
	ctx.StatusCode(204)
}

func (s *Server) clearCache(ctx iris.Context) {
	store, er := s.store(ctx)
	if er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}

	if er := store.Clear(persist(ctx)); er != nil {
		returnError(ctx, er, getStatusCodeForError(er))
		return
	}
	ctx.StatusCode(204)
}

func (s *Server) store(ctx iris.Context) (*persistent.Persistent[string], error) {
	t, er := persistent.ParseCacheType(ctx.Params().Get("scope"))
	if er != nil {
		return nil, er
	}
	return s.ps.For(t), nil
}

func persist(ctx iris.Context) bool {
	v, er := ctx.URLParamBool("persist")
	return er == nil && v
}
