package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/covercell/portal"
	"github.com/covercell/portal/config"
	"github.com/covercell/portal/provider/local"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	repo     portal.RepositoryManager
	provider *local.Provider
	store    *portal.Store
	gateway  *portal.Gateway
	guard    *portal.RouteGuard
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("portal"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := gconfig.New(&config.BaseConfig{})
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybePrettyJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithSession(ctx, app); err != nil {
		panic(err)
	}
	defer app.store.Close()

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*portal.Account)(nil))
	persistence.RegisterModel((*portal.Profile)(nil))
	persistence.RegisterModel((*portal.Enrollment)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	plog := app.GetLogger("persistence")
	client.SetLogger(func(format string, args ...any) {
		plog.Debug(fmt.Sprintf(format, args...))
	})

	// migrations ship per dialect, pick the directory matching the driver
	migrationsFS, err := fs.Sub(portal.GetMigrationsFS(), "data/sql/migrations/"+pcfg.GetDriver())
	if err != nil {
		return err
	}

	client.RegisterSQLMigrations(migrationsFS)

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if app.Config().GetApp().GetDebug() {
		fixturesFS, err := fs.Sub(portal.GetFixturesFS(), "data/fixtures")
		if err != nil {
			return err
		}
		client.RegisterFixtures(fixturesFS)
		if err := client.Seed(ctx); err != nil {
			return err
		}
	}

	bdb, ok := client.DB().(*bun.DB)
	if !ok {
		return fmt.Errorf("unexpected database handle %T", client.DB())
	}

	app.bunDB = bdb
	app.repo = portal.NewRepositoryManager(bdb)

	return app.repo.Validate()
}

func WithSession(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	app.provider = local.New(
		app.repo.Accounts(),
		acfg,
		local.WithLogger(app.GetLogger("auth:prv")),
	)

	profiles := portal.NewProfileStore(app.repo.Profiles())

	app.store = portal.NewStore(
		app.provider,
		profiles,
		portal.WithStoreLogger(app.GetLogger("session")),
		portal.WithStoreNotifier(portal.NewLogNotifier(app.GetLogger("session:notify"))),
	)
	app.store.Start(ctx)

	app.gateway = portal.NewGateway(
		app.provider,
		profiles,
		app.store,
		portal.WithGatewayLogger(app.GetLogger("gateway")),
	)

	guard, err := portal.NewRouteGuard(app.provider, profiles, acfg)
	if err != nil {
		return err
	}
	guard.Logger = app.GetLogger("guard")
	app.guard = guard

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().Use(flash.ToMiddleware(flash.DefaultFlash, "flash"))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("index", router.ViewContext{
			"title": app.Config().GetApp().GetName(),
			"plans": portal.Plans(),
		})
	})

	portal.RegisterPortalRoutes(srv.Router(),
		portal.WithControllerDebug(app.Config().GetApp().GetDebug()),
		portal.WithControllerLogger(app.GetLogger("portal:ctrl")),
		portal.WithControllerRepo(app.repo),
		portal.WithControllerGateway(app.gateway),
		portal.WithControllerGuard(app.guard),
		portal.WithControllerTokens(app.provider),
	)

	app.srv = srv

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
