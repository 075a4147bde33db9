package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Stable rejection reasons, one per rule. Tests and transports assert on rule
// identity with errors.Is; the strings are part of the API and never change.
var (
	ErrEmptyStatement     = errors.New("empty query")
	ErrMultipleStatements = errors.New("multiple statements not allowed")
	ErrVerbNotAllowed     = errors.New("verb not allowed")
	ErrFilesystemAccess   = errors.New("filesystem access not allowed")
	ErrForbiddenConstruct = errors.New("disallowed command or function")
	ErrJoinNotAllowed     = errors.New("JOIN not allowed")
	ErrWrongTable         = errors.New("must reference the managed table")
	ErrWrongTableForVerb  = errors.New("can only operate on the managed table")
)

// Rejection is a caller-fault refusal to execute a statement. It carries the
// name of the violated rule and, for the verb-binding rule, the verb that
// tripped it. A Rejection is never a server fault: the statement itself is
// what must change.
type Rejection struct {
	Rule   string // machine-stable rule identifier, e.g. "verb_not_allowed"
	Verb   string // set only by the verb table-binding rule
	reason error  // one of the sentinels above
}

func (r *Rejection) Error() string {
	if r.Verb != "" {
		return fmt.Sprintf("%s: %s", r.Verb, r.reason)
	}
	return r.reason.Error()
}

func (r *Rejection) Unwrap() error { return r.reason }

// Validator decides whether a caller-supplied statement is safe to execute
// verbatim against the managed table. It is a pure predicate chain over the
// statement text: no state is retained between calls and any number of
// goroutines may validate concurrently.
//
// The checks are textual, not grammar-aware. A forbidden keyword inside a
// string literal triggers rejection — a deliberate over-restriction for a
// single-table sandbox. See checkSingleStatement for the same trade-off.
type Validator struct {
	policy *Policy
	rules  []rule

	verbRe      *regexp.Regexp
	joinRe      *regexp.Regexp
	fromRe      *regexp.Regexp
	fromTableRe *regexp.Regexp
	updateRe    *regexp.Regexp
	deleteRe    *regexp.Regexp
	insertRe    *regexp.Regexp
}

// rule is one named check in the ordered chain. A rule sees the folded
// (case-lowered, terminator-stripped) text and returns a rejection or nil.
type rule struct {
	name  string
	check func(folded string) *Rejection
}

// NewValidator precompiles the table-binding patterns for the policy's table
// name and fixes the rule order. The first failing rule wins.
func NewValidator(p *Policy) *Validator {
	table := regexp.QuoteMeta(p.TableName)
	v := &Validator{
		policy:      p,
		verbRe:      regexp.MustCompile(`^(` + strings.Join(AllowedVerbs, "|") + `)\b`),
		joinRe:      regexp.MustCompile(`\bjoin\b`),
		fromRe:      regexp.MustCompile(`\bfrom\b`),
		fromTableRe: regexp.MustCompile(`\bfrom\s+` + table + `\b`),
		updateRe:    regexp.MustCompile(`^update\s+` + table + `\b`),
		deleteRe:    regexp.MustCompile(`^delete\s+from\s+` + table + `\b`),
		insertRe:    regexp.MustCompile(`^insert\s+into\s+` + table + `\b`),
	}
	v.rules = []rule{
		{"multiple_statements", v.checkSingleStatement},
		{"verb_not_allowed", v.checkVerb},
		{"filesystem_access", v.checkFilesystem},
		{"forbidden_construct", v.checkForbidden},
		{"join_not_allowed", v.checkJoin},
		{"wrong_table", v.checkFromTable},
		{"wrong_table_for_verb", v.checkVerbBinding},
	}
	return v
}

// Validate runs the rule chain over sql. On success it returns the cleaned
// statement (whitespace trimmed, one trailing terminator stripped, original
// casing intact) ready for the limiter and the execution engine. On failure
// it returns a *Rejection identifying the first violated rule.
func (v *Validator) Validate(sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", &Rejection{Rule: "empty_statement", reason: ErrEmptyStatement}
	}

	cleaned := Clean(sql)
	folded := Fold(cleaned)

	for _, r := range v.rules {
		if rej := r.check(folded); rej != nil {
			rej.Rule = r.name
			return "", rej
		}
	}

	return cleaned, nil
}

// checkSingleStatement rejects any remaining separator. The one legitimate
// trailing terminator was already stripped, so a semicolon anywhere — even
// inside a string literal — means rejection. Known over-restriction; the
// sandbox stays conservative rather than parsing literals.
func (v *Validator) checkSingleStatement(folded string) *Rejection {
	if strings.Contains(folded, ";") {
		return &Rejection{reason: ErrMultipleStatements}
	}
	return nil
}

func (v *Validator) checkVerb(folded string) *Rejection {
	if !v.verbRe.MatchString(folded) {
		return &Rejection{reason: ErrVerbNotAllowed}
	}
	return nil
}

// checkFilesystem is a coarse textual heuristic, not a path parser: the
// engine has no business seeing anything that looks like a filesystem path.
func (v *Validator) checkFilesystem(folded string) *Rejection {
	if strings.Contains(folded, "/etc/") || strings.Contains(folded, "..") {
		return &Rejection{reason: ErrFilesystemAccess}
	}
	return nil
}

func (v *Validator) checkForbidden(folded string) *Rejection {
	for _, re := range v.policy.Forbidden {
		if re.MatchString(folded) {
			return &Rejection{reason: ErrForbiddenConstruct}
		}
	}
	return nil
}

// checkJoin rejects JOIN anywhere: exactly one table is ever visible.
func (v *Validator) checkJoin(folded string) *Rejection {
	if v.joinRe.MatchString(folded) {
		return &Rejection{reason: ErrJoinNotAllowed}
	}
	return nil
}

// checkFromTable requires any FROM clause to immediately reference the
// managed table.
func (v *Validator) checkFromTable(folded string) *Rejection {
	if v.fromRe.MatchString(folded) && !v.fromTableRe.MatchString(folded) {
		return &Rejection{reason: ErrWrongTable}
	}
	return nil
}

// checkVerbBinding pins write verbs to the managed table: UPDATE's target,
// DELETE's FROM target and INSERT's INTO target must all be it.
func (v *Validator) checkVerbBinding(folded string) *Rejection {
	switch {
	case strings.HasPrefix(folded, "update ") && !v.updateRe.MatchString(folded):
		return &Rejection{Verb: "update", reason: ErrWrongTableForVerb}
	case strings.HasPrefix(folded, "delete ") && !v.deleteRe.MatchString(folded):
		return &Rejection{Verb: "delete", reason: ErrWrongTableForVerb}
	case strings.HasPrefix(folded, "insert ") && !v.insertRe.MatchString(folded):
		return &Rejection{Verb: "insert", reason: ErrWrongTableForVerb}
	}
	return nil
}
