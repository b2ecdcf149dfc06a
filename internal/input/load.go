package input

import (
	"bufio"
	"io"
	"os"

	"github.com/dekarrin/monmsg/internal/mmerrors"
)

// Stdin is the path that LoadLines treats as standard input.
const Stdin = "-"

// LoadLines reads every line of the file at path. If path is [Stdin], lines
// are read from os.Stdin instead. Line terminators are removed; a trailing
// carriage return is left for the caller to handle.
//
// Any failure to open or read the input is returned as a
// *mmerrors.InputUnavailableError.
func LoadLines(path string) ([]string, error) {
	if path == Stdin {
		lines, err := ReadLines(os.Stdin)
		if err != nil {
			return nil, mmerrors.InputUnavailable("stdin", err)
		}
		return lines, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, mmerrors.InputUnavailable(path, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, mmerrors.InputUnavailable(path, err)
	}
	return lines, nil
}

// ReadLines reads every line from r until end of input.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
