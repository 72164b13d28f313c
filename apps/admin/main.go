package main

import (
	"fmt"
	"os"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/news"
	logsvc "github.com/amork0112-rgb/frageedu/services/logger"
	"github.com/amork0112-rgb/frageedu/storage/database"
	sqlxrepos "github.com/amork0112-rgb/frageedu/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	logger.Enable(false)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	// start CLI
	cli := commandLine{
		db:      db.DB,
		admRepo: sqlxrepos.NewAdminRepository(db),
		usrRepo: sqlxrepos.NewUserRepository(db),
		newsSvc: news.NewService(sqlxrepos.NewNewsRepository(db), conf),
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("admin: %v", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
