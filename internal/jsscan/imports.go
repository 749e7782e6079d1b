package jsscan

import (
	"regexp"
	"sort"
)

var (
	// import x from 'a' | import {a, b as c} from "a" | import * as ns from 'a'
	reImportFrom = regexp.MustCompile(`\bimport\s+(type\s+)?[\w$*{}\s,]*?\s*\bfrom\s*['"]([^'"\n]+)['"]`)
	// import 'a'
	reImportBare = regexp.MustCompile(`\bimport\s*['"]([^'"\n]+)['"]`)
	// export * from 'a' | export * as ns from 'a' | export {a} from 'a'
	reExportFrom = regexp.MustCompile(`\bexport\s+(type\s+)?(?:\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"\n]+)['"]`)
	// import('a')
	reDynamicImport = regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
	// require('a')
	reRequire = regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"\n]+)['"]\s*\)`)
)

type match struct {
	offset    int
	specifier string
}

// Imports returns the module specifiers statically referenced by a JavaScript
// or TypeScript source, in order of first appearance. Type-only imports and
// re-exports are skipped since they are erased at compile time.
func Imports(src []byte) ([]string, error) {
	code, err := StripComments(src)
	if err != nil {
		return nil, err
	}

	var found []match
	collect := func(re *regexp.Regexp, typeGroup, specGroup int) {
		for _, m := range re.FindAllSubmatchIndex(code, -1) {
			if typeGroup > 0 && m[2*typeGroup] >= 0 {
				continue
			}
			found = append(found, match{
				offset:    m[0],
				specifier: string(code[m[2*specGroup]:m[2*specGroup+1]]),
			})
		}
	}

	collect(reImportFrom, 1, 2)
	collect(reImportBare, 0, 1)
	collect(reExportFrom, 1, 2)
	collect(reDynamicImport, 0, 1)
	collect(reRequire, 0, 1)

	sort.SliceStable(found, func(i, j int) bool { return found[i].offset < found[j].offset })

	seen := make(map[string]bool, len(found))
	specifiers := make([]string, 0, len(found))
	for _, m := range found {
		if !seen[m.specifier] {
			seen[m.specifier] = true
			specifiers = append(specifiers, m.specifier)
		}
	}
	return specifiers, nil
}
