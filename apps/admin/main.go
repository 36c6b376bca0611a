package main

import (
	"fmt"
	"os"

	"github.com/trezcool/lophoc/apps/di"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/user"
	"github.com/trezcool/lophoc/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := di.NewLogger("ADMIN", conf, nil)

	// set up DB; migrations are left to the migrate command
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		c:   di.NewContainer(conf, db, logger, di.NewMailService(conf, logger), user.NewSyncService),
		out: os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
