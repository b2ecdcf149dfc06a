package monmsg

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dekarrin/monmsg/internal/config"
	"github.com/dekarrin/monmsg/internal/input"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/resolve"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var canonicalInput = []string{
	`0: 4 1 5`,
	`1: 2 3 | 3 2`,
	`2: 4 4 | 5 5`,
	`3: 4 5 | 5 4`,
	`4: "a"`,
	`5: "b"`,
	``,
	`ababbb`,
	`bababa`,
	`abbbab`,
	`aaabbb`,
	`aaaabbb`,
}

var loopableInput = []string{
	`0: 8 11`,
	`8: 42`,
	`11: 42 31`,
	`42: "a"`,
	`31: "b"`,
	``,
	`aab`,
	`aaab`,
	`aaabb`,
	`ab`,
	`aabb`,
}

var loopOverrides = []string{`8: 42 | 42 8`, `11: 42 31 | 42 11 31`}

func Test_Engine_Run(t *testing.T) {
	testCases := []struct {
		name           string
		input          []string
		cfg            config.Config
		expect         string
		expectContains []string
		expectErr      error
	}{
		{
			name:   "canonical reduce",
			input:  canonicalInput,
			expect: "2 messages completely match rule 0\n",
		},
		{
			name:   "canonical expand",
			input:  canonicalInput,
			cfg:    config.Config{Strategy: resolve.StrategyExpand},
			expect: "2 messages completely match rule 0\n",
		},
		{
			name:   "canonical verified",
			input:  canonicalInput,
			cfg:    config.Config{Verify: true},
			expect: "2 messages completely match rule 0\n",
		},
		{
			name:   "no overrides",
			input:  loopableInput,
			expect: "1 messages completely match rule 0\n",
		},
		{
			name:   "looping grammar expanded to longest message",
			input:  loopableInput,
			cfg:    config.Config{Strategy: resolve.StrategyExpand, MaxLength: config.LongestMessage, Overrides: loopOverrides},
			expect: "3 messages completely match rule 0\n",
		},
		{
			name:  "looping grammar reduced",
			input: loopableInput,
			cfg:   config.Config{Overrides: loopOverrides},
			expectContains: []string{
				"WARNING: grammar not fully resolved: 3 rule(s) remain: 0, 8, 11\n",
				`  8: "a" | "a" 8`,
				`  11: "ab" | "a" 11 "b"`,
				"0 messages completely match rule 0 (count may be incomplete)\n",
			},
		},
		{
			name:      "looping grammar expanded without bound",
			input:     loopableInput,
			cfg:       config.Config{Strategy: resolve.StrategyExpand, Overrides: loopOverrides},
			expectErr: mmerrors.ErrCyclicGrammar,
		},
		{
			name:      "malformed rule",
			input:     []string{`0: 1`, `1 "a"`, ``, `a`},
			expectErr: mmerrors.ErrMalformedRule,
		},
		{
			name:      "no rule 0",
			input:     []string{`1: "a"`, ``, `a`},
			expectErr: mmerrors.ErrUnknownRule,
		},
		{
			name:  "rules table",
			input: []string{`0: 1 2`, `1: "a"`, `2: "b"`, ``, `ab`},
			cfg:   config.Config{ShowRules: true},
			expectContains: []string{
				"ID",
				`"ab"`,
				"1 messages completely match rule 0\n",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var out bytes.Buffer
			eng, err := New(&out, tc.cfg, zap.NewNop())
			if !assert.NoError(err) {
				return
			}
			defer eng.Close()

			err = eng.Run(context.Background(), tc.input)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}
			if !assert.NoError(err) {
				return
			}

			if tc.expect != "" {
				assert.Equal(tc.expect, out.String())
			}
			for _, s := range tc.expectContains {
				assert.Contains(out.String(), s)
			}
		})
	}
}

func Test_Engine_Run_CachedResult(t *testing.T) {
	testCases := []struct {
		name  string
		input []string
		cfg   config.Config
	}{
		{name: "resolved", input: canonicalInput},
		{name: "unresolved", input: loopableInput, cfg: config.Config{Overrides: loopOverrides}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			cfg := tc.cfg
			cfg.Cache = config.Cache{Type: config.CacheSQLite, DataDir: t.TempDir()}

			run := func() string {
				var out bytes.Buffer
				eng, err := New(&out, cfg, zap.NewNop())
				if !assert.NoError(err) {
					return ""
				}
				defer eng.Close()

				assert.NoError(eng.Run(context.Background(), tc.input))
				return out.String()
			}

			first := run()
			second := run()

			assert.NotEmpty(first)
			assert.Equal(first, second)
		})
	}
}

func Test_Engine_Run_VerifyThenExpandWithCache(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	expandCfg := config.Config{
		Strategy:  resolve.StrategyExpand,
		MaxLength: config.LongestMessage,
		Overrides: loopOverrides,
		Cache:     config.Cache{Type: config.CacheSQLite, DataDir: dir},
	}
	verifyCfg := expandCfg
	verifyCfg.Verify = true

	run := func(cfg config.Config) string {
		var out bytes.Buffer
		eng, err := New(&out, cfg, zap.NewNop())
		if !assert.NoError(err) {
			return ""
		}
		defer eng.Close()

		assert.NoError(eng.Run(context.Background(), loopableInput))
		return out.String()
	}

	verified := run(verifyCfg)
	assert.Contains(verified, "(count may be incomplete)")

	expanded := run(expandCfg)
	assert.Equal("3 messages completely match rule 0\n", expanded)
}

func Test_Engine_RunInteractive(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	eng, err := New(&out, config.Config{}, zap.NewNop())
	if !assert.NoError(err) {
		return
	}
	defer eng.Close()

	if !assert.NoError(eng.Load(canonicalInput)) {
		return
	}

	in := input.NewDirectReader(strings.NewReader("ababbb\nbababa\n:count\n:unresolved\n:bogus\n:quit\naaaabb\n"))
	defer in.Close()

	err = eng.RunInteractive(context.Background(), in)
	if !assert.NoError(err) {
		return
	}

	actual := out.String()
	assert.Contains(actual, "Loaded 6 rule(s) and 5 message(s)\n")
	assert.Contains(actual, "MATCH\nNO MATCH\n2 messages completely match rule 0\n")
	assert.Contains(actual, "All rules reachable from rule 0 are resolved\n")
	assert.Contains(actual, `I don't know the command ":bogus".`)
	assert.True(strings.HasSuffix(actual, "Goodbye\n"))

	// nothing after :quit is read
	assert.Equal(1, strings.Count(actual, "NO MATCH"))
	assert.Equal(2, strings.Count(actual, "MATCH\n"))
}

func Test_Engine_RunInteractive_EndOfInput(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	eng, err := New(&out, config.Config{Overrides: loopOverrides}, zap.NewNop())
	if !assert.NoError(err) {
		return
	}
	defer eng.Close()

	if !assert.NoError(eng.Load(loopableInput)) {
		return
	}

	in := input.NewDirectReader(strings.NewReader(":unresolved\n"))

	err = eng.RunInteractive(context.Background(), in)

	assert.NoError(err)
	assert.Contains(out.String(), "Grammar is not fully resolved")
	assert.Contains(out.String(), "WARNING: grammar not fully resolved")
	assert.True(strings.HasSuffix(out.String(), "Goodbye\n"))
}

func Test_New_InvalidConfig(t *testing.T) {
	assert := assert.New(t)

	_, err := New(&bytes.Buffer{}, config.Config{MaxDepth: -4}, nil)

	assert.Error(err)
}

func Test_Engine_RunInteractive_CachedRules(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Config{Cache: config.Cache{Type: config.CacheSQLite, DataDir: t.TempDir()}}

	var out bytes.Buffer
	eng, err := New(&out, cfg, zap.NewNop())
	if !assert.NoError(err) {
		return
	}
	if !assert.NoError(eng.Run(context.Background(), canonicalInput)) {
		return
	}
	assert.NoError(eng.Close())

	out.Reset()
	eng, err = New(&out, cfg, zap.NewNop())
	if !assert.NoError(err) {
		return
	}
	defer eng.Close()

	if !assert.NoError(eng.Load(canonicalInput)) {
		return
	}

	in := input.NewDirectReader(strings.NewReader(":rules\n"))
	assert.NoError(eng.RunInteractive(context.Background(), in))

	assert.Contains(out.String(), "loaded from the cache")
	assert.Contains(out.String(), "as loaded, not as reduced")
}
