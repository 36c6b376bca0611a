package main

import "github.com/trezcool/lophoc/storage/database"

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(cli.c.DB, args[0], args[1:]...)
}
