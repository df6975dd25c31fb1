package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/iris-contrib/middleware/cors"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/logger"
	"github.com/kataras/iris/v12/middleware/recover"
	"go.uber.org/zap"

	"github.com/msaldanha/plasticine/auth"
	"github.com/msaldanha/plasticine/httpclient"
	"github.com/msaldanha/plasticine/persistent"
)

const userClaim = "user"

type Options struct {
	Url           string
	Secret        string
	AdminPassword string
	StaticDir     string
	// AppEnv is published to the browser as the runtime configuration.
	AppEnv      map[string]string
	Persistence *persistent.Persistence[string]
	Auth        *auth.Auth
	// Backend, when set, checks credentials against the admin API instead of
	// AdminPassword.
	Backend *httpclient.Client
	Logger  *zap.Logger
}

type Server struct {
	app    *iris.Application
	opts   Options
	ps     *persistent.Persistence[string]
	auth   *auth.Auth
	secret string
	logger *zap.Logger
	// issueToken signs the session token handed out by login.
	issueToken func(username string) (string, error)
}

func NewServer(opts Options) (*Server, error) {
	if opts.Persistence == nil {
		return nil, ErrNilPersistence
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Auth == nil {
		opts.Auth = auth.New(opts.Persistence, persistent.Local)
	}
	if opts.Secret == "" {
		opts.Secret = os.Getenv("SERVER_SECRET")
	}
	if opts.Secret == "" {
		// tokens issued with it won't survive a restart
		opts.Secret = uuid.NewString()
		opts.Logger.Warn("no secret configured, using a random one")
	}

	app := iris.New()
	app.Use(recover.New())
	app.Use(logger.New())

	crs := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	app.Use(crs)
	app.AllowMethods(iris.MethodOptions)

	srv := &Server{
		app:    app,
		opts:   opts,
		ps:     opts.Persistence,
		auth:   opts.Auth,
		secret: opts.Secret,
		logger: opts.Logger.Named("Rest"),
	}

	srv.issueToken = srv.sign
	srv.buildHandlers()

	return srv, nil
}

func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("url", s.opts.Url))
	return s.app.Run(iris.Addr(s.opts.Url))
}

// Handler builds the application and returns it as a plain http.Handler.
func (s *Server) Handler() (http.Handler, error) {
	if er := s.app.Build(); er != nil {
		return nil, er
	}
	return s.app, nil
}

func returnError(ctx iris.Context, er error, statusCode int) {
	ctx.StatusCode(statusCode)
	_ = ctx.JSON(Response{Error: er.Error()})
}

func getStatusCodeForError(er error) int {
	switch {
	case errors.Is(er, ErrEmptyPassword):
		fallthrough
	case errors.Is(er, persistent.ErrUnknownCacheType):
		return 400
	case errors.Is(er, ErrAuthentication):
		return 401
	case errors.Is(er, ErrNotFound):
		return 404
	default:
		return 500
	}
}
