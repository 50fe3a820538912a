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

package hnm

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
)

// Lister lists the symbols of a sequence of files. Each file is processed on
// its own: a file that fails is reported on the diagnostics writer and the
// next one is processed.
type Lister struct {
	name   string
	stdout io.Writer
	stderr io.Writer
	opts   []Option
	logger log.Logger
}

// NewLister returns a Lister writing symbol lines to stdout and diagnostics to
// stderr. Diagnostics are prefixed with name, the name of the tool.
func NewLister(name string, stdout, stderr io.Writer, opts ...Option) *Lister {
	return &Lister{
		name:   name,
		stdout: stdout,
		stderr: stderr,
		opts:   opts,
		logger: newOptions(opts).logger,
	}
}

// List processes the files in order. The returned error holds a *PathError
// for every file that failed, or is nil if all files were listed.
func (l *Lister) List(paths ...string) error {
	var result *multierror.Error
	for _, path := range paths {
		err := l.listFile(path)
		if err == nil {
			continue
		}
		level.Debug(l.logger).Log("msg", "failed to list symbols", "path", path, "err", err)
		fmt.Fprintf(l.stderr, "%s: %s: %s\n", l.name, path, Reason(err))
		result = multierror.Append(result, &PathError{Path: path, Err: err})
	}
	return result.ErrorOrNil()
}

func (l *Lister) listFile(path string) error {
	f, err := Open(path, l.opts...)
	if err != nil {
		return err
	}
	defer f.Close()

	id, err := f.BuildID()
	switch {
	case err == nil:
		level.Debug(l.logger).Log("msg", "build id", "path", path, "build_id", id)
	case !errors.Is(err, ErrSectionDoesNotExist):
		level.Debug(l.logger).Log("msg", "build id unavailable", "path", path, "err", err)
	}

	syms, err := f.Symbols()
	if err != nil {
		return err
	}
	return WriteSymbols(l.stdout, syms)
}
