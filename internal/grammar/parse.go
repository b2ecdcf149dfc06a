package grammar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/monmsg/internal/mmerrors"
)

// Target is the ID of the rule that every message is checked against.
const Target = 0

// Split divides raw input lines at the first blank line into the rules block
// and the messages block. Blank lines in the messages block are dropped, as
// are trailing carriage returns on every line. If there is no blank line, all
// lines are rules and there are no messages.
func Split(lines []string) (rules []string, messages []string) {
	inRules := true
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")

		if inRules {
			if strings.TrimSpace(line) == "" {
				inRules = false
				continue
			}
			rules = append(rules, line)
		} else if strings.TrimSpace(line) != "" {
			messages = append(messages, line)
		}
	}

	return rules, messages
}

// Parse reads a complete input made of a rules block, a blank line, and a
// messages block. The parsed rules are checked to make sure rule 0 exists and
// that every reference names a defined rule.
//
// If any rule line is malformed, a *mmerrors.MalformedRuleError is returned
// along with an empty Table; a partially-parsed grammar is never returned.
func Parse(lines []string) (Table, []string, error) {
	ruleLines, messages := Split(lines)

	t, err := ParseRules(ruleLines)
	if err != nil {
		return Table{}, nil, err
	}

	return t, messages, nil
}

// ParseRules parses a rules block, one rule per line, and validates the result
// against the default target rule. Line numbers in returned errors are
// 1-based from the start of the block.
func ParseRules(lines []string) (Table, error) {
	return ParseRulesWith(lines, nil)
}

// ParseRulesWith is ParseRules with override rules applied before the table is
// validated. An override replaces the parsed rule with the same ID, or is
// added if there is none. Errors caused by an override have no line number.
func ParseRulesWith(lines []string, overrides []Rule) (Table, error) {
	t := NewTable()
	lineOf := map[int]int{}

	for i, line := range lines {
		lineNo := i + 1

		r, err := parseRule(lineNo, line)
		if err != nil {
			return Table{}, err
		}

		if prevLine, dupe := lineOf[r.ID]; dupe {
			return Table{}, mmerrors.MalformedRule(lineNo, line, "rule %d is already defined on line %d", r.ID, prevLine)
		}

		lineOf[r.ID] = lineNo
		t.rules[r.ID] = r
	}

	for _, r := range overrides {
		delete(lineOf, r.ID)
		t.rules[r.ID] = r.Copy()
	}

	if err := t.Validate(Target); err != nil {
		// give the location of the offending rule if we have it
		var malformed *mmerrors.MalformedRuleError
		if errors.As(err, &malformed) {
			for id, lineNo := range lineOf {
				r := t.rules[id]
				if r.String() == malformed.Text {
					return Table{}, mmerrors.MalformedRule(lineNo, lines[lineNo-1], "%s", malformed.Reason)
				}
			}
		}
		return Table{}, err
	}

	return t, nil
}

// ParseRule parses a single rule line of the form `<id>: <body>`. The body is
// either a quoted literal such as `"a"`, or one or more alternatives separated
// by `|`, each being a whitespace-separated list of rule IDs and quoted
// literals.
func ParseRule(s string) (Rule, error) {
	return parseRule(0, s)
}

// MustParseRule is ParseRule but it panics if the rule does not parse.
func MustParseRule(s string) Rule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err.Error())
	}
	return r
}

// MustParseRules is ParseRules but it panics if the rules do not parse.
func MustParseRules(lines ...string) Table {
	t, err := ParseRules(lines)
	if err != nil {
		panic(err.Error())
	}
	return t
}

func parseRule(lineNo int, s string) (Rule, error) {
	sides := strings.SplitN(s, ":", 2)
	if len(sides) != 2 {
		return Rule{}, mmerrors.MalformedRule(lineNo, s, "not a rule of form 'ID: BODY'")
	}
	if sides[1] != "" && sides[1][0] != ' ' && sides[1][0] != '\t' {
		return Rule{}, mmerrors.MalformedRule(lineNo, s, "rule ID must be followed by ': '")
	}

	idStr := strings.TrimSpace(sides[0])
	id, err := parseID(idStr)
	if err != nil {
		return Rule{}, mmerrors.MalformedRule(lineNo, s, "rule ID: %s", err.Error())
	}

	body := strings.TrimSpace(sides[1])
	if body == "" {
		return Rule{}, mmerrors.MalformedRule(lineNo, s, "empty rule body")
	}

	r := Rule{ID: id}

	for i, altStr := range strings.Split(body, "|") {
		elemStrs := strings.Fields(altStr)
		if len(elemStrs) < 1 {
			return Rule{}, mmerrors.MalformedRule(lineNo, s, "alternative %d is empty", i+1)
		}

		alt := make(Alternative, len(elemStrs))
		for j, elemStr := range elemStrs {
			elem, err := parseElement(elemStr)
			if err != nil {
				return Rule{}, mmerrors.MalformedRule(lineNo, s, "alternative %d: %s", i+1, err.Error())
			}
			alt[j] = elem
		}

		r.Alternatives = append(r.Alternatives, alt)
	}

	return r, nil
}

func parseElement(s string) (Element, error) {
	if strings.HasPrefix(s, `"`) {
		if len(s) < 2 || !strings.HasSuffix(s, `"`) {
			return nil, fmt.Errorf("unterminated literal %s", s)
		}

		value := s[1 : len(s)-1]
		if value == "" {
			return nil, fmt.Errorf("empty literal")
		}
		if strings.Contains(value, `"`) {
			return nil, fmt.Errorf("literal %s contains a quote", s)
		}

		return Literal(value), nil
	}

	id, err := parseID(s)
	if err != nil {
		return nil, fmt.Errorf("element %q is neither a rule ID nor a quoted literal", s)
	}
	return Reference(id), nil
}

// parseID accepts only plain decimal digits; signs are not allowed.
func parseID(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty ID")
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, fmt.Errorf("%q is not a non-negative integer", s)
		}
	}

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return id, nil
}
