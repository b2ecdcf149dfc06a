// Package monmsg contains an engine that reads a grammar of numbered rules and
// a list of messages, resolves rule 0 into the set of strings it derives, and
// reports which messages completely match it, either in a single batch run or
// from messages typed at a prompt.
package monmsg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dekarrin/monmsg/internal/cache"
	"github.com/dekarrin/monmsg/internal/config"
	"github.com/dekarrin/monmsg/internal/grammar"
	"github.com/dekarrin/monmsg/internal/input"
	"github.com/dekarrin/monmsg/internal/mmerrors"
	"github.com/dekarrin/monmsg/internal/resolve"
	"github.com/dekarrin/monmsg/internal/util"
	"github.com/dekarrin/rosed"
	"go.uber.org/zap"
)

// Engine contains the things needed to resolve a grammar and match messages
// against it, writing results to an output stream.
type Engine struct {
	cfg   config.Config
	log   *zap.Logger
	out   *bufio.Writer
	store cache.Store

	table    grammar.Table
	messages []string
	loaded   bool

	result   resolve.Result
	warning  *mmerrors.UnresolvedGrammarWarning
	resolved bool

	// cached is whether result came from the cache, in which case its table
	// is the loaded one and not the reduced one.
	cached bool

	running bool
}

// New creates a new engine that writes to the given output stream. The config
// has defaults filled in and is then validated. If the config names a cache,
// it is connected to immediately.
//
// If nil is given for the output stream, a bufio.Writer is opened on stdout.
// If nil is given for the logger, nothing is logged.
func New(outputStream io.Writer, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	if outputStream == nil {
		outputStream = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	eng := &Engine{
		cfg: cfg,
		log: logger,
		out: bufio.NewWriter(outputStream),
	}

	if cfg.Cache.Enabled() {
		store, err := cfg.Cache.Connect()
		if err != nil {
			return nil, fmt.Errorf("connect to cache %s: %w", cfg.Cache, err)
		}
		eng.store = store
		logger.Debug("connected to cache", zap.Stringer("cache", cfg.Cache))
	}

	return eng, nil
}

// Close closes all resources associated with the Engine, including the
// connection to any cache.
func (eng *Engine) Close() error {
	if eng.running {
		return fmt.Errorf("cannot close a running engine")
	}

	if eng.store != nil {
		if err := eng.store.Close(); err != nil {
			return fmt.Errorf("close cache: %w", err)
		}
		eng.store = nil
	}

	return nil
}

// Load parses the given input lines into the grammar and messages that the
// Engine operates on. The configured override rules are applied before the
// grammar is validated. Any previous result is discarded.
func (eng *Engine) Load(lines []string) error {
	ruleLines, messages := grammar.Split(lines)

	var overrides []grammar.Rule
	for _, line := range eng.cfg.Overrides {
		r, err := grammar.ParseRule(line)
		if err != nil {
			return fmt.Errorf("override: %w", err)
		}
		overrides = append(overrides, r)
	}

	t, err := grammar.ParseRulesWith(ruleLines, overrides)
	if err != nil {
		return err
	}

	eng.table = t
	eng.messages = messages
	eng.loaded = true
	eng.resolved = false
	eng.warning = nil

	eng.log.Debug("loaded input",
		zap.Int("rules", t.Len()),
		zap.Int("messages", len(messages)),
		zap.Int("overrides", len(overrides)),
	)

	return nil
}

// Resolve resolves rule 0 of the loaded grammar with the configured strategy,
// using the cache if one is configured. If the grammar could not be fully
// resolved, the result is still kept and the warning is returned; callers
// that can continue with a partial result should check for it with
// errors.Is(err, mmerrors.ErrUnresolvedGrammar).
func (eng *Engine) Resolve(ctx context.Context) (resolve.Result, error) {
	if !eng.loaded {
		return resolve.Result{}, fmt.Errorf("no input has been loaded")
	}

	rd := eng.cfg.Reducer()
	rd.Logger = eng.log
	x := eng.cfg.Expander(eng.longestMessage())
	x.Logger = eng.log

	// verification always gives the reduction result, so it is stored as one
	strategy := eng.cfg.Strategy
	if eng.cfg.Verify {
		strategy = resolve.StrategyReduce
	}

	key := cache.Key(eng.table, strategy.String(), cache.Options{
		Target:          grammar.Target,
		MaxDepth:        x.MaxDepth,
		MaxLength:       x.MaxLength,
		MaxAlternatives: rd.MaxAlternatives,
	})

	if eng.store != nil && !eng.cfg.Verify && !eng.cfg.ShowRules {
		entry, err := eng.store.Get(ctx, key)
		if err == nil {
			eng.log.Debug("using cached result", zap.String("key", key), zap.Stringer("id", entry.ID))
			res, err := eng.setResult(eng.resultFromEntry(entry))
			eng.cached = true
			return res, err
		} else if !errors.Is(err, cache.ErrNotFound) {
			eng.log.Warn("could not read cache", zap.Error(err))
		}
	}

	var res resolve.Result
	var err error

	if eng.cfg.Verify {
		if eng.cfg.Strategy != resolve.StrategyReduce {
			eng.log.Info("verification always reports the reduction result", zap.Stringer("strategy", eng.cfg.Strategy))
		}
		res, err = resolve.CrossCheck(eng.table, grammar.Target, rd, x)
	} else {
		var r resolve.Resolver = rd
		if eng.cfg.Strategy == resolve.StrategyExpand {
			r = x
		}
		res, err = r.Resolve(eng.table, grammar.Target)
	}

	if err != nil && !errors.Is(err, mmerrors.ErrUnresolvedGrammar) {
		return resolve.Result{}, err
	}

	if eng.store != nil {
		entry := cache.Entry{
			Key:        key,
			Strategy:   res.Strategy.String(),
			Literals:   util.Ordered(res.Literals),
			Unresolved: res.Unresolved,
			Pruned:     res.Pruned,
		}
		var warning *mmerrors.UnresolvedGrammarWarning
		if errors.As(err, &warning) {
			entry.Bodies = warning.Bodies
		}

		if _, putErr := eng.store.Put(ctx, entry); putErr != nil {
			eng.log.Warn("could not write cache", zap.Error(putErr))
		}
	}

	return eng.setResult(res, err)
}

func (eng *Engine) setResult(res resolve.Result, err error) (resolve.Result, error) {
	eng.result = res
	eng.resolved = true
	eng.cached = false
	eng.warning = nil

	var warning *mmerrors.UnresolvedGrammarWarning
	if errors.As(err, &warning) {
		eng.warning = warning
	}

	return res, err
}

func (eng *Engine) resultFromEntry(entry cache.Entry) (resolve.Result, error) {
	res := resolve.Result{
		Strategy:   resolve.Strategy(entry.Strategy),
		Target:     grammar.Target,
		Literals:   util.KeySetOf(entry.Literals),
		Table:      eng.table,
		Unresolved: entry.Unresolved,
		Pruned:     entry.Pruned,
	}

	if len(entry.Unresolved) > 0 {
		return res, &mmerrors.UnresolvedGrammarWarning{
			IDs:    entry.Unresolved,
			Bodies: entry.Bodies,
		}
	}
	return res, nil
}

// longestMessage gives the length of the longest loaded message.
func (eng *Engine) longestMessage() int {
	var longest int
	for _, msg := range eng.messages {
		if len(msg) > longest {
			longest = len(msg)
		}
	}
	return longest
}

// Count gives the number of loaded messages that completely match rule 0.
// Resolve must have been called first.
func (eng *Engine) Count() int {
	return resolve.Count(eng.result.Literals, eng.messages)
}

// Complete returns whether the count given by Count is known to be exact. It
// is not if reduction left rules unresolved, or if expansion pruned
// derivations that might have been as long as a message.
func (eng *Engine) Complete() bool {
	if len(eng.result.Unresolved) > 0 {
		return false
	}
	if eng.result.Pruned > 0 {
		// pruning by length alone never drops a string as long as a message
		longest := eng.longestMessage()
		return eng.cfg.MaxDepth == 0 && eng.cfg.Expander(longest).MaxLength >= longest
	}
	return true
}

// Run loads the given input lines, resolves rule 0, and writes the number of
// messages that completely match it. If the grammar cannot be fully
// resolved, the diagnostic listing of the unresolved rules is written before
// the count and the count is marked as possibly incomplete; this is not an
// error.
func (eng *Engine) Run(ctx context.Context, lines []string) error {
	if err := eng.Load(lines); err != nil {
		return err
	}

	if _, err := eng.Resolve(ctx); err != nil && !errors.Is(err, mmerrors.ErrUnresolvedGrammar) {
		return err
	}

	var output strings.Builder

	if eng.cfg.ShowRules {
		output.WriteString(eng.rulesTable())
		output.WriteString("\n\n")
	}

	if eng.warning != nil {
		output.WriteString(eng.warningText())
		output.WriteString("\n\n")
	}

	output.WriteString(countLine(eng.Count()))
	if !eng.Complete() {
		output.WriteString(" (count may be incomplete)")
	}
	output.WriteRune('\n')

	return eng.write(output.String())
}

// RunInteractive begins reading lines from the reader and reporting whether
// each one completely matches rule 0, until the :quit command is received or
// input ends. Load must have been called first; if Resolve has not, it is
// called before reading any lines.
func (eng *Engine) RunInteractive(ctx context.Context, in input.LineReader) error {
	if !eng.resolved {
		if _, err := eng.Resolve(ctx); err != nil && !errors.Is(err, mmerrors.ErrUnresolvedGrammar) {
			return err
		}
	}

	intro := fmt.Sprintf("Loaded %d rule(s) and %d message(s)\n", eng.table.Len(), len(eng.messages))
	if eng.warning != nil {
		intro += rosed.Edit("Grammar is not fully resolved; type :unresolved for details. Only strings derived so far can match.").Wrap(eng.cfg.Width).String() + "\n"
	}
	intro += "Type a message to test it, or :help for commands\n"
	if err := eng.write(intro); err != nil {
		return err
	}

	eng.running = true
	defer func() {
		eng.running = false
	}()

	for eng.running {
		line, err := in.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("get user input: %w", err)
		}

		var output string
		if strings.HasPrefix(line, ":") {
			output, err = eng.execCommand(line)
			if err != nil {
				output = rosed.Edit(mmerrors.Message(err)).Wrap(eng.cfg.Width).String()
			}
		} else if eng.result.Literals.Has(line) {
			output = "MATCH"
		} else {
			output = "NO MATCH"
		}

		if output != "" {
			if err := eng.write(output + "\n"); err != nil {
				return err
			}
		}
	}

	return eng.write("Goodbye\n")
}

func (eng *Engine) execCommand(line string) (string, error) {
	cmd := strings.ToLower(strings.TrimSpace(line))

	switch cmd {
	case ":quit", ":q", ":exit":
		eng.running = false
		return "", nil
	case ":count":
		out := countLine(eng.Count())
		if !eng.Complete() {
			out += " (count may be incomplete)"
		}
		return out, nil
	case ":rules":
		if eng.cached {
			note := rosed.Edit("Result loaded from the cache; these rules are as loaded, not as reduced.").Wrap(eng.cfg.Width).String()
			return note + "\n" + eng.rulesTable(), nil
		}
		return eng.rulesTable(), nil
	case ":unresolved":
		if eng.warning == nil {
			return "All rules reachable from rule 0 are resolved", nil
		}
		return eng.warningText(), nil
	case ":help":
		return helpText, nil
	default:
		return "", mmerrors.WrapUser(
			fmt.Errorf("unknown command: %q", line),
			fmt.Sprintf("I don't know the command %q. Type :help to see the commands.", line),
		)
	}
}

const helpText = `Commands:
  :count       show how many loaded messages match rule 0
  :rules       show the resolved rule table
  :unresolved  show the rules that could not be resolved
  :help        show this help
  :quit        exit
Any other line is checked against rule 0.`

func countLine(n int) string {
	return fmt.Sprintf("%d messages completely match rule 0", n)
}

// rulesTable gives a text table of the rules of the current result.
func (eng *Engine) rulesTable() string {
	t := eng.result.Table

	data := [][]string{{"ID", "Rule"}}
	for _, id := range t.IDs() {
		r, _ := t.Rule(id)
		body := strings.TrimPrefix(r.String(), fmt.Sprintf("%d: ", id))
		data = append(data, []string{fmt.Sprintf("%d", id), body})
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, eng.cfg.Width, tableOpts).
		String()
}

// warningText gives the wrapped warning message followed by the listing of
// unresolved rules.
func (eng *Engine) warningText() string {
	msg := rosed.Edit("WARNING: " + eng.warning.Error()).Wrap(eng.cfg.Width).String()

	var listing []string
	for _, line := range strings.Split(eng.warning.Listing(), "\n") {
		wrapped := rosed.Edit(line).Wrap(eng.cfg.Width - 2).String()
		for _, l := range strings.Split(wrapped, "\n") {
			listing = append(listing, "  "+l)
		}
	}

	return msg + "\n" + strings.Join(listing, "\n")
}

func (eng *Engine) write(s string) error {
	if _, err := eng.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := eng.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}
