// Package isc extracts configuration declared inside function entry files.
//
// Sources are only read and lexed, never executed. Two declaration forms are
// recognized: an exported config object with a top-level schedule property,
// and a handler wrapped in a schedule() helper imported from one of the
// configured helper modules. When both are present the config export wins.
package isc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/watzon/fnlist/internal/config"
	"github.com/watzon/fnlist/internal/jsscan"
	"github.com/watzon/fnlist/internal/schedule"
)

// Values holds configuration extracted from an entry file.
type Values struct {
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// ExtractError reports an entry file that could not be read or lexed.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extracting in-source config from %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

var errNotStatic = errors.New("value is not a static string")

var (
	reConfigExport = regexp.MustCompile(`(?:\bexport\s+(?:const|let|var)\s+config\b(?:\s*:\s*[\w$.]+(?:<[^>=]*>)?)?|\b(?:module\.)?exports\.config)\s*=\s*\{`)

	reNamedImport      = regexp.MustCompile(`\bimport\s+(?:type\s+)?(?:[\w$]+\s*,\s*)?\{([^}]*)\}\s*from\s*['"]([^'"\n]+)['"]`)
	reNamespaceImport  = regexp.MustCompile(`\bimport\s+(?:[\w$]+\s*,\s*)?\*\s*as\s+([\w$]+)\s*from\s*['"]([^'"\n]+)['"]`)
	reDestructRequire  = regexp.MustCompile(`\b(?:const|let|var)\s*\{([^}]*)\}\s*=\s*require\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	reNamespaceRequire = regexp.MustCompile(`\b(?:const|let|var)\s+([\w$]+)\s*=\s*require\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)

	reScheduleKey = regexp.MustCompile(`^\s*(?:schedule|"schedule"|'schedule')\s*:`)
)

// helperExport is the helper function wrapping a scheduled handler.
const helperExport = "schedule"

// Extractor extracts in-source configuration.
type Extractor struct {
	helperModules map[string]bool
	parser        *schedule.CronParser
}

// NewExtractor creates an extractor recognizing schedule() helpers imported
// from helperModules. An empty list falls back to the default helper module.
func NewExtractor(helperModules []string) *Extractor {
	if len(helperModules) == 0 {
		helperModules = []string{config.DefaultISCHelperModule}
	}

	modules := make(map[string]bool, len(helperModules))
	for _, m := range helperModules {
		modules[m] = true
	}

	return &Extractor{
		helperModules: modules,
		parser:        schedule.NewCronParser(),
	}
}

// Extract reads the entry file at path and returns the configuration it
// declares. Declarations whose value cannot be determined statically, or
// whose schedule is not a valid cron expression, are logged and ignored.
func (e *Extractor) Extract(ctx context.Context, path, functionName string) (Values, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Values{}, &ExtractError{Path: path, Err: err}
	}

	return e.ExtractSource(ctx, path, functionName, src)
}

// ExtractSource is Extract for an already loaded source.
func (e *Extractor) ExtractSource(ctx context.Context, path, functionName string, src []byte) (Values, error) {
	if err := ctx.Err(); err != nil {
		return Values{}, err
	}

	code, err := jsscan.StripComments(src)
	if err != nil {
		return Values{}, &ExtractError{Path: path, Err: err}
	}

	lit, found := configSchedule(code)
	source := "config export"
	if !found {
		lit, found = e.helperSchedule(code)
		source = "schedule helper"
	}
	if !found {
		return Values{}, nil
	}

	expr, err := staticString(lit)
	if err != nil {
		log.Warn().Err(err).
			Str("function", functionName).
			Str("path", path).
			Str("declaration", source).
			Msg("Ignoring schedule that cannot be resolved statically")
		return Values{}, nil
	}

	if err := e.parser.Validate(expr); err != nil {
		log.Warn().Err(err).
			Str("function", functionName).
			Str("path", path).
			Str("schedule", expr).
			Msg("Ignoring invalid schedule")
		return Values{}, nil
	}

	log.Debug().
		Str("function", functionName).
		Str("declaration", source).
		Str("schedule", expr).
		Msg("Found in-source schedule")
	return Values{Schedule: expr}, nil
}

func staticString(lit string) (string, error) {
	if lit == "" {
		return "", errNotStatic
	}
	return jsscan.Unquote(lit)
}

// configSchedule returns the raw value of the top-level schedule property of
// an exported config object. The literal is empty when the property exists
// but its value is not a string literal.
func configSchedule(code []byte) (string, bool) {
	loc := reConfigExport.FindIndex(code)
	if loc == nil {
		return "", false
	}

	open := loc[1] - 1
	closing := jsscan.MatchBrace(code, open)
	if closing < 0 {
		return "", false
	}

	for _, prop := range topLevelProperties(code[open+1 : closing]) {
		m := reScheduleKey.FindIndex(prop)
		if m == nil {
			continue
		}
		value := prop[m[1]:]
		lit, end, ok := jsscan.ReadString(value, 0)
		if !ok || strings.TrimSpace(string(value[end:])) != "" {
			return "", true
		}
		return lit, true
	}
	return "", false
}

// topLevelProperties splits an object literal body on commas at depth zero.
func topLevelProperties(body []byte) [][]byte {
	var props [][]byte
	depth, start := 0, 0

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"', '\'', '`':
			if _, end, ok := jsscan.ReadString(body, i); ok {
				i = end - 1
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case ',':
			if depth == 0 {
				props = append(props, body[start:i])
				start = i + 1
			}
		}
	}
	return append(props, body[start:])
}

// helperSchedule returns the first argument of the schedule() helper call
// wrapping the exported handler.
func (e *Extractor) helperSchedule(code []byte) (string, bool) {
	callees := e.helperCallees(code)
	if len(callees) == 0 {
		return "", false
	}

	quoted := make([]string, len(callees))
	for i, c := range callees {
		quoted[i] = regexp.QuoteMeta(c)
	}

	re, err := regexp.Compile(`(?:\b(?:const|let|var)\s+handler\b(?:\s*:\s*[\w$.]+)?|\b(?:module\.)?exports\.handler)\s*=\s*(?:` +
		strings.Join(quoted, "|") + `)\s*\(`)
	if err != nil {
		return "", false
	}

	loc := re.FindIndex(code)
	if loc == nil {
		return "", false
	}

	lit, _, ok := jsscan.ReadString(code, loc[1])
	if !ok {
		return "", true
	}
	return lit, true
}

// helperCallees returns the expressions the schedule helper is reachable as:
// local names for named imports and ns.schedule for namespace imports.
func (e *Extractor) helperCallees(code []byte) []string {
	var callees []string

	for _, m := range reNamedImport.FindAllSubmatch(code, -1) {
		if e.helperModules[string(m[2])] {
			callees = append(callees, bindings(string(m[1]), " as ")...)
		}
	}
	for _, m := range reDestructRequire.FindAllSubmatch(code, -1) {
		if e.helperModules[string(m[2])] {
			callees = append(callees, bindings(string(m[1]), ":")...)
		}
	}
	for _, re := range []*regexp.Regexp{reNamespaceImport, reNamespaceRequire} {
		for _, m := range re.FindAllSubmatch(code, -1) {
			if e.helperModules[string(m[2])] {
				callees = append(callees, string(m[1])+"."+helperExport)
			}
		}
	}
	return callees
}

// bindings returns the local names the helper export is bound to in an
// import or destructuring list.
func bindings(list, rename string) []string {
	var names []string
	for _, spec := range strings.Split(list, ",") {
		spec = strings.TrimSpace(spec)
		spec = strings.TrimPrefix(spec, "type ")

		imported, local := spec, spec
		if i := strings.Index(spec, rename); i >= 0 {
			imported = strings.TrimSpace(spec[:i])
			local = strings.TrimSpace(spec[i+len(rename):])
		}
		if imported == helperExport && local != "" {
			names = append(names, local)
		}
	}
	return names
}

var defaultExtractor = NewExtractor(nil)

// FindDeclarationsInPath extracts in-source configuration using the default
// helper modules.
func FindDeclarationsInPath(ctx context.Context, path, functionName string) (Values, error) {
	return defaultExtractor.Extract(ctx, path, functionName)
}
