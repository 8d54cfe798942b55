package app

import (
	"context"
	"net/http"

	"github.com/danwahyudi/authgate/internal/pkg/authn"
	"github.com/danwahyudi/authgate/internal/pkg/cache"
	"github.com/danwahyudi/authgate/internal/pkg/clock"
	"github.com/danwahyudi/authgate/internal/pkg/config"
	"github.com/danwahyudi/authgate/internal/pkg/goroutine"
	"github.com/danwahyudi/authgate/internal/pkg/hash"
	"github.com/danwahyudi/authgate/internal/pkg/instrument"
	"github.com/danwahyudi/authgate/internal/pkg/mail"
	"github.com/danwahyudi/authgate/internal/pkg/otpcode"
	"github.com/danwahyudi/authgate/internal/pkg/router"
	"github.com/danwahyudi/authgate/internal/pkg/uid"
	"github.com/danwahyudi/authgate/internal/pkg/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// authenticatorProxy lets the router be built before the auth module exists;
// the module fills in the delegate during initModules, before the server
// accepts traffic.
type authenticatorProxy struct {
	delegate authn.Authenticator
}

func (p *authenticatorProxy) Authenticate(ctx context.Context, token string) (*authn.Info, error) {
	return p.delegate.Authenticate(ctx, token)
}

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	token     uid.StringID
	codes     otpcode.Generator

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	cache     cache.Cache
	mail      mail.Mail

	// server
	authProxy  *authenticatorProxy
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
