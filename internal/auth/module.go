// Package auth wires the authentication module: challenge issue/verify,
// session lifecycle, and the orchestrating usecase behind the HTTP surface.
package auth

import (
	"net/http"

	"github.com/danwahyudi/authgate/internal/auth/challenge"
	"github.com/danwahyudi/authgate/internal/auth/inbound"
	"github.com/danwahyudi/authgate/internal/auth/outbound/db"
	"github.com/danwahyudi/authgate/internal/auth/outbound/notifier"
	"github.com/danwahyudi/authgate/internal/auth/session"
	"github.com/danwahyudi/authgate/internal/auth/usecase"
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
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Cache      cache.Cache                `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Mailer     mail.Mail                  `validate:"required"`
	HTTPClient *http.Client
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Token      uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Codes      otpcode.Generator          `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// New wires the module and registers its HTTP endpoints. The returned usecase
// also serves as the router's session-token authenticator.
func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	dbAuth := db.NewDB(dep.DBConn, dep.Instrument)
	notify := notifier.New(dep.Mailer, dep.HTTPClient, dep.Config, dep.Instrument)

	challenges := challenge.New(challenge.Dependency{
		Store:    dbAuth,
		Cache:    dep.Cache,
		Notifier: notify,
		HMAC:     dep.HMAC,
		Codes:    dep.Codes,
		UID:      dep.UID,
		Token:    dep.Token,
		Clock:    dep.Clock,
		Config:   dep.Config,
		Ins:      dep.Instrument,
	})

	sessions := session.New(session.Dependency{
		Store:  dbAuth,
		HMAC:   dep.HMAC,
		UID:    dep.UID,
		Token:  dep.Token,
		Clock:  dep.Clock,
		Config: dep.Config,
		Ins:    dep.Instrument,
	})

	uc := usecase.New(usecase.Dependency{
		Challenge:  challenges,
		Session:    sessions,
		RepoDB:     dbAuth,
		Notifier:   notify,
		Goroutine:  dep.Goroutine,
		Validator:  dep.Validator,
		Bcrypt:     dep.Bcrypt,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Config:     dep.Config,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return uc, nil
}
