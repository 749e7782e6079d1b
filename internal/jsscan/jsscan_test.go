package jsscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripComments(t *testing.T) {
	src := "const a = 1 // schedule('@daily')\n" +
		"/* export const config = {\n schedule: '@hourly' } */\n" +
		"const url = 'http://example.com' // trailing\n" +
		"const re = /\\/\\/ not a comment/g\n" +
		"const tpl = `a ${ \"}\" + `nested` } // kept`\n"

	out, err := StripComments([]byte(src))
	require.NoError(t, err)
	require.Len(t, out, len(src))
	require.Equal(t, strings.Count(src, "\n"), strings.Count(string(out), "\n"))

	got := string(out)
	require.NotContains(t, got, "schedule")
	require.NotContains(t, got, "trailing")
	require.Contains(t, got, "'http://example.com'")
	require.Contains(t, got, `/\/\/ not a comment/g`)
	require.Contains(t, got, "// kept`")
}

func TestStripComments_Division(t *testing.T) {
	out, err := StripComments([]byte("const x = (a) / 2 / b // half\n"))
	require.NoError(t, err)
	require.Equal(t, "const x = (a) / 2 / b", strings.TrimRight(string(out), " \n"))
}

func TestStripComments_Unterminated(t *testing.T) {
	cases := map[string]string{
		"string":        "const a = 'oops\n",
		"template":      "const a = `never closed",
		"block comment": "/* open",
		"substitution":  "const a = `${ b`",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := StripComments([]byte(src))
			require.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestImports(t *testing.T) {
	src := `
import fs from 'fs'
import { a, b as c } from "./lib/util"
import * as ns from './ns.js'
import type { Handler } from '@netlify/functions'
import './side-effect'
export * from "./reexport"
export { x } from './named-reexport'
export type { T } from './types-only'
// import nope from './commented'
const lazy = await import('./lazy.mjs')
const dep = require("left-pad")
const again = require('./lib/util')
`

	specs, err := Imports([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []string{
		"fs",
		"./lib/util",
		"./ns.js",
		"./side-effect",
		"./reexport",
		"./named-reexport",
		"./lazy.mjs",
		"left-pad",
	}, specs)
}

func TestImports_Multiline(t *testing.T) {
	src := "import {\n  one,\n  two,\n} from './multi'\n"

	specs, err := Imports([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []string{"./multi"}, specs)
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		lit  string
		want string
		err  error
	}{
		{`"@daily"`, "@daily", nil},
		{`'0 * * * *'`, "0 * * * *", nil},
		{"`@hourly`", "@hourly", nil},
		{`'it\'s'`, "it's", nil},
		{"`${cron}`", "", ErrInterpolated},
	}

	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			got, err := Unquote(tt.lit)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := Unquote("schedule")
	require.Error(t, err)
}

func TestReadStringAndMatchBrace(t *testing.T) {
	src := []byte(`  "a}b" rest`)
	lit, end, ok := ReadString(src, 0)
	require.True(t, ok)
	require.Equal(t, `"a}b"`, lit)
	require.Equal(t, " rest", string(src[end:]))

	_, _, ok = ReadString([]byte("ident"), 0)
	require.False(t, ok)

	obj := []byte(`{ a: { b: "}" }, c: 1 } tail`)
	closing := MatchBrace(obj, 0)
	require.Equal(t, " tail", string(obj[closing+1:]))
	require.Equal(t, -1, MatchBrace([]byte("{ open"), 0))
}
