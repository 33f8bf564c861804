package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// fileArg is one file to open and where to put the cursor. Line and Col
// are 1-based; 0 means unset.
type fileArg struct {
	Path string
	Line int
	Col  int
}

var (
	// +LINE[:COL] applies to the files that follow it
	posFlag = regexp.MustCompile(`^\+(\d+)(?::(\d+))?$`)
	// FILE:LINE[:COL]
	posSuffix = regexp.MustCompile(`^(.+?):(\d+)(?::(\d+))?$`)
)

// parseArgs turns the command line into files to open. A path that
// exists on disk is never split at a colon.
func parseArgs(args []string) ([]fileArg, error) {
	var files []fileArg
	line, col := 0, 0
	for _, a := range args {
		if m := posFlag.FindStringSubmatch(a); m != nil {
			l, c, err := position(m[1], m[2])
			if err != nil {
				return nil, fmt.Errorf("bad position %q: %w", a, err)
			}
			line, col = l, c
			continue
		}
		f := fileArg{Path: a, Line: line, Col: col}
		if _, err := os.Stat(a); err != nil {
			if m := posSuffix.FindStringSubmatch(a); m != nil {
				l, c, err := position(m[2], m[3])
				if err != nil {
					return nil, fmt.Errorf("bad position %q: %w", a, err)
				}
				f = fileArg{Path: m[1], Line: l, Col: c}
			}
		}
		files = append(files, f)
	}
	return files, nil
}

func position(line, col string) (int, int, error) {
	l, err := strconv.Atoi(line)
	if err != nil {
		return 0, 0, err
	}
	c := 0
	if col != "" {
		if c, err = strconv.Atoi(col); err != nil {
			return 0, 0, err
		}
	}
	return l, c, nil
}
