package input

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/stretchr/testify/assert"
)

func Test_DirectReader_ReadLine(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		allowBlank bool
		expect     []string
	}{
		{
			name:   "lines are trimmed",
			input:  "  ababbb \nbababa\r\n",
			expect: []string{"ababbb", "bababa"},
		},
		{
			name:   "blank lines are skipped",
			input:  "ab\n\n   \nba\n",
			expect: []string{"ab", "ba"},
		},
		{
			name:       "blank lines allowed",
			input:      "ab\n\nba\n",
			allowBlank: true,
			expect:     []string{"ab", "", "ba"},
		},
		{
			name:   "last line without terminator",
			input:  "ab\nba",
			expect: []string{"ab", "ba"},
		},
		{
			name:  "empty input",
			input: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r := NewDirectReader(strings.NewReader(tc.input))
			defer r.Close()
			r.AllowBlank(tc.allowBlank)

			var actual []string
			for {
				line, err := r.ReadLine()
				if err == io.EOF {
					break
				}
				if !assert.NoError(err) {
					return
				}
				actual = append(actual, line)
			}

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_LoadLines(t *testing.T) {
	t.Run("reads every line", func(t *testing.T) {
		assert := assert.New(t)

		path := filepath.Join(t.TempDir(), "input.txt")
		err := os.WriteFile(path, []byte("0: 1\n1: \"a\"\n\na\n"), 0644)
		if !assert.NoError(err) {
			return
		}

		actual, err := LoadLines(path)

		assert.NoError(err)
		assert.Equal([]string{"0: 1", `1: "a"`, "", "a"}, actual)
	})

	t.Run("missing file", func(t *testing.T) {
		assert := assert.New(t)

		path := filepath.Join(t.TempDir(), "nope.txt")

		_, err := LoadLines(path)

		assert.ErrorIs(err, mmerrors.ErrInputUnavailable)
		assert.ErrorIs(err, os.ErrNotExist)

		var inputErr *mmerrors.InputUnavailableError
		if assert.ErrorAs(err, &inputErr) {
			assert.Equal(path, inputErr.Path)
		}
	})
}
