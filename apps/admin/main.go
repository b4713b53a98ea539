package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/academics"
	"github.com/trezcool/darasa/core/account"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	cli := commandLine{validate: validate}
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		cli.accSvc = account.NewService(inmemdb.NewAccountRepository(db))
		cli.acadSvc = academics.NewService(inmemdb.NewAcademicsRepository(db), nil, logger)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func(db *sqlx.DB) { _ = db.Close() }(db)

		cli.db = db
		cli.accSvc = account.NewService(sqlxrepos.NewAccountRepository(db))
		cli.acadSvc = academics.NewService(sqlxrepos.NewAcademicsRepository(db), nil, logger)
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
