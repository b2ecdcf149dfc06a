/*
Monmsg reads a grammar of numbered rules followed by a list of received
messages, resolves rule 0 into every string it derives, and reports how many of
the messages completely match it.

Usage:

	monmsg [flags]

The input is a block of rule lines such as `0: 4 1 5`, `1: 2 3 | 3 2`, and
`4: "a"`, then a blank line, then one message per line. Rule 0 is resolved by
reduction unless another strategy is chosen. If a grammar with loops in it
cannot be fully reduced, the rules that remain are listed and the count is
given for whatever could be derived.

The flags are:

	-v, --version
		Give the current version of monmsg and then exit.

	-i, --input FILE
		Read the rules and messages from the given file. Use "-" to read from
		stdin. If not given, will default to the value of environment variable
		MONMSG_INPUT, and if that is not given, will default to the file
		"19-input.txt" in the current working directory.

	-c, --config FILE
		Load run settings from the given TOML file. Flags given on the command
		line take precedence over settings in the file. If not given, will
		default to the value of environment variable MONMSG_CONFIG.

	-s, --strategy reduce|expand
		Use the given strategy to resolve rule 0. Defaults to reduce.

	--max-depth N
		When expanding, stop any derivation after it has substituted rules on a
		loop N times.

	--max-length N
		When expanding, drop any derivation that cannot give a string of N
		characters or fewer. Give -1 to use the length of the longest message.

	--max-alts N
		When reducing, fail if any rule would be rewritten to more than N
		alternatives. Give -1 for no limit.

	-o, --override RULE
		Replace (or add) the rule with the same ID before resolving, such as
		"8: 42 | 42 8". May be given more than once.

	--cache DRIVER[:PARAMS]
		Store resolved sets in the given cache and reuse them on later runs.
		DRIVER must be one of none, inmem, or sqlite. sqlite needs the path to
		a data directory such as sqlite:.monmsg. If not given, will default to
		the value of environment variable MONMSG_CACHE, and if that is not
		given, no cache is used.

	--verify
		Resolve with both strategies and fail if they disagree. Only grammars
		without loops can be verified; for others this is skipped.

	--rules
		Print the resolved rule table before the count.

	-I, --interactive
		After loading the input, read messages typed at a prompt and say
		whether each one matches. Type ":help" at the prompt for commands.

	-d, --direct
		Force reading interactive input directly from stdin as opposed to using
		GNU readline based routines, even if launched in a tty.

	--debug
		Log debug output to stderr.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dekarrin/monmsg"
	"github.com/dekarrin/monmsg/internal/config"
	"github.com/dekarrin/monmsg/internal/input"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/resolve"
	"github.com/dekarrin/monmsg/internal/version"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates an unsuccessful program execution due to bad
	// flags or arguments.
	ExitUsageError

	// ExitInitError indicates an unsuccessful program execution due to an
	// issue loading config or input, or initializing the engine.
	ExitInitError

	// ExitRunError indicates an unsuccessful program execution due to a
	// problem while resolving or matching.
	ExitRunError
)

const (
	EnvInput  = "MONMSG_INPUT"
	EnvConfig = "MONMSG_CONFIG"
	EnvCache  = "MONMSG_CACHE"

	defaultInputFile = "19-input.txt"
)

var (
	returnCode int = ExitSuccess

	flagVersion     = pflag.BoolP("version", "v", false, "Give the current version of monmsg and then exit.")
	flagInput       = pflag.StringP("input", "i", defaultInputFile, "Read rules and messages from the given file, or \"-\" for stdin.")
	flagConfig      = pflag.StringP("config", "c", "", "Load run settings from the given TOML file.")
	flagStrategy    = pflag.StringP("strategy", "s", "reduce", "Resolve rule 0 with the given strategy; one of 'reduce' or 'expand'.")
	flagMaxDepth    = pflag.Int("max-depth", 0, "Bound expansion of looping rules to the given depth.")
	flagMaxLength   = pflag.Int("max-length", 0, "Bound expansion to strings of the given length; -1 for the longest message.")
	flagMaxAlts     = pflag.Int("max-alts", config.DefaultMaxAlternatives, "Bound reduction to rules of the given number of alternatives; -1 for no bound.")
	flagOverrides   = pflag.StringArrayP("override", "o", nil, "Replace or add a rule before resolving. May be repeated.")
	flagCache       = pflag.String("cache", "", "Use the given cache connection string; one of none, inmem, or sqlite:DIR.")
	flagVerify      = pflag.Bool("verify", false, "Check that both strategies give the same set.")
	flagRules       = pflag.Bool("rules", false, "Print the resolved rule table.")
	flagInteractive = pflag.BoolP("interactive", "I", false, "Test messages typed at a prompt after loading input.")
	flagDirect      = pflag.BoolP("direct", "d", false, "Force reading interactive input directly from stdin instead of through GNU readline.")
	flagDebug       = pflag.Bool("debug", false, "Log debug output.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(panicErr)
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("monmsg v%s\n", version.Current)
		return
	}

	if len(pflag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}

	fileCfg, err := loadConfigFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	cfg, err := applyFlags(fileCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\nDo -h for help.\n", err.Error())
		returnCode = ExitUsageError
		return
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Encoding = "console"
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Debug {
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to initialize logger: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer logger.Sync()

	inputPath := os.Getenv(EnvInput)
	if pflag.Lookup("input").Changed || inputPath == "" {
		inputPath = *flagInput
	}

	lines, err := input.LoadLines(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	eng, err := monmsg.New(os.Stdout, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	defer eng.Close()

	ctx := context.Background()

	if !*flagInteractive {
		if err := eng.Run(ctx, lines); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = exitCodeFor(err)
		}
		return
	}

	if err := eng.Load(lines); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}

	var in input.LineReader
	if *flagDirect || inputPath == input.Stdin {
		in = input.NewDirectReader(os.Stdin)
	} else {
		in, err = input.NewInteractiveReader()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
	}
	defer in.Close()

	if err := eng.RunInteractive(ctx, in); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = exitCodeFor(err)
		return
	}
}

// exitCodeFor gives the exit code for an error returned from running the
// engine. Problems with the input itself are init errors; anything else
// happened while resolving.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, mmerrors.ErrInputUnavailable),
		errors.Is(err, mmerrors.ErrMalformedRule),
		errors.Is(err, mmerrors.ErrUnknownRule):
		return ExitInitError
	default:
		return ExitRunError
	}
}

// loadConfigFile loads the config file named by flag or environment, if any.
func loadConfigFile() (config.Config, error) {
	cfgPath := os.Getenv(EnvConfig)
	if pflag.Lookup("config").Changed {
		cfgPath = *flagConfig
	}
	if cfgPath == "" {
		return config.Config{}, nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyFlags builds the run config from the one loaded from file with flags
// and environment variables applied over it.
func applyFlags(cfg config.Config) (config.Config, error) {
	if pflag.Lookup("strategy").Changed {
		strat, err := resolve.ParseStrategy(*flagStrategy)
		if err != nil {
			return cfg, err
		}
		cfg.Strategy = strat
	}
	if pflag.Lookup("max-depth").Changed {
		cfg.MaxDepth = *flagMaxDepth
	}
	if pflag.Lookup("max-length").Changed {
		cfg.MaxLength = *flagMaxLength
	}
	if pflag.Lookup("max-alts").Changed {
		cfg.MaxAlternatives = *flagMaxAlts
	}
	if pflag.Lookup("override").Changed {
		cfg.Overrides = append(cfg.Overrides, *flagOverrides...)
	}
	if pflag.Lookup("verify").Changed {
		cfg.Verify = *flagVerify
	}
	if pflag.Lookup("rules").Changed {
		cfg.ShowRules = *flagRules
	}
	if pflag.Lookup("debug").Changed {
		cfg.Debug = *flagDebug
	}

	cacheConnStr := os.Getenv(EnvCache)
	if pflag.Lookup("cache").Changed {
		cacheConnStr = *flagCache
	}
	if cacheConnStr != "" {
		c, err := config.ParseCacheConnString(cacheConnStr)
		if err != nil {
			return cfg, fmt.Errorf("cache: %w", err)
		}
		cfg.Cache = c
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
