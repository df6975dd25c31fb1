package main

import (
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/msaldanha/plasticine/appconfig"
	"github.com/msaldanha/plasticine/auth"
	"github.com/msaldanha/plasticine/cache"
	"github.com/msaldanha/plasticine/config"
	"github.com/msaldanha/plasticine/httpclient"
	"github.com/msaldanha/plasticine/persistent"
	"github.com/msaldanha/plasticine/server"
	"github.com/msaldanha/plasticine/storage"
)

func main() {
	cfg, er := config.Load()
	if er != nil {
		fmt.Fprintln(os.Stderr, er)
		os.Exit(1)
	}

	logger, er := cfg.NewLogger()
	if er != nil {
		fmt.Fprintln(os.Stderr, er)
		os.Exit(1)
	}
	defer logger.Sync()

	if er := run(cfg, logger); er != nil {
		logger.Fatal("server stopped", zap.Error(er))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.ValidShortName() {
		logger.Warn("app short name should only contain letters and underscores",
			zap.String("shortName", cfg.App.ShortName))
	}

	db, er := bolt.Open(cfg.Storage.DBFile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if er != nil {
		return er
	}
	defer db.Close()

	local, er := storage.NewBoltStore(db, cfg.Storage.Bucket)
	if er != nil {
		return er
	}

	ps, er := persistent.NewPersistence[string](persistent.PersistenceOptions{
		LocalStore:   local,
		SessionStore: storage.NewMemoryStore(),
		Prefix:       cfg.StoragePrefix(),
		DefaultTTL:   cache.ExpireAfter(cfg.Storage.DefaultCacheTime),
		Logger:       logger,
	})
	if er != nil {
		return er
	}

	au := auth.New(ps, cfg.PermissionCacheType())

	var backend *httpclient.Client
	if cfg.App.APIURL != "" {
		opts := httpclient.DefaultOptions()
		opts.Timeout = cfg.HTTP.Timeout
		opts.Retries = cfg.HTTP.Retries
		opts.RequestOptions.APIURL = cfg.App.APIURL
		opts.RequestOptions.URLPrefix = cfg.App.APIURLPrefix
		opts.Transform = httpclient.DefaultTransform(au, cfg.HTTP.AuthenticationScheme)
		opts.Logger = logger
		backend = httpclient.New(opts)
	}

	env := cfg.GlobEnv()
	for k, v := range appconfig.FilterEnv(os.Environ(), appconfig.DefaultPrefix) {
		env[k] = v
	}

	srv, er := server.NewServer(server.Options{
		Url:           cfg.Server.Address,
		Secret:        cfg.Server.Secret,
		AdminPassword: cfg.Server.AdminPassword,
		StaticDir:     cfg.Server.StaticDir,
		AppEnv:        env,
		Persistence:   ps,
		Auth:          au,
		Backend:       backend,
		Logger:        logger,
	})
	if er != nil {
		return er
	}

	return srv.Run()
}
