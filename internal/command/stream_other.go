//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package command

import "io"

func newStreamLines(r io.Reader) lineReader {
	return newChanLines(r)
}
