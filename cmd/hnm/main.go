// This file is part of hnm.
//
// Copyright (C) 2024 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// hnm lists the symbols of 32-bit ELF object files the way nm does.
package main

import (
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/goretk/hnm"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	var cfg struct {
		debug bool
		files []string
	}

	app := kingpin.New(filepath.Base(args[0]), "List symbols from 32-bit ELF object files.").UsageWriter(os.Stdout)
	app.Version(version)
	app.HelpFlag.Short('h')
	app.Flag("debug", "Enable debug logging.").Default("false").BoolVar(&cfg.debug)
	app.Arg("file", "Object files to list.").Default("a.out").StringsVar(&cfg.files)

	if _, err := app.Parse(args[1:]); err != nil {
		app.Errorf("%s", err)
		return 2
	}

	logger := newLogger(cfg.debug)
	lister := hnm.NewLister(args[0], os.Stdout, os.Stderr, hnm.WithLogger(logger))
	if err := lister.List(cfg.files...); err != nil {
		level.Debug(logger).Log("msg", "some files could not be listed", "err", err)
		return 1
	}
	return 0
}

func newLogger(debug bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if debug {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}
