package app

import (
	"log/slog"
	"os"

	"github.com/danwahyudi/authgate/internal/auth"
)

func (a *App) initModules() {
	uc, err := auth.New(auth.Dependency{
		DBConn:     a.dbConn,
		Cache:      a.cache,
		Router:     a.router,
		Mailer:     a.mail,
		Goroutine:  a.goroutine,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		Token:      a.token,
		HMAC:       a.hmac,
		Bcrypt:     a.bcrypt,
		Codes:      a.codes,
		Clock:      a.clock,
		Validator:  a.validator,
	})
	if err != nil {
		slog.Error("failed to init module auth", "error", err)
		os.Exit(1)
	}

	a.authProxy.delegate = uc
}
