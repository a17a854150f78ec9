package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"

	dbembed "github.com/meetlog/meetlog/db"
	"github.com/meetlog/meetlog/internal/config"
	"github.com/meetlog/meetlog/internal/db"
	"github.com/meetlog/meetlog/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (defaults to CONFIG_PATH or ./config.toml)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <up|down|version|force N>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	migrations, err := fs.Sub(dbembed.MigrationsFS, "migrations")
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration files: %v\n", err)
		os.Exit(1)
	}
	if err := db.RunMigrate(logger.L, cfg.Postgres, migrations, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}
