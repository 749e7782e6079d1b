package isc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/watzon/fnlist/internal/jsscan"
)

func TestExtractSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "config export",
			src:  `export const config = { path: "/api", schedule: "@daily" }`,
			want: "@daily",
		},
		{
			name: "typed config export",
			src: `import type { Config } from "@netlify/functions"
export const config: Config = {
  schedule: '0 * * * *',
}`,
			want: "0 * * * *",
		},
		{
			name: "commonjs config export",
			src:  "module.exports.config = { schedule: `@weekly` }",
			want: "@weekly",
		},
		{
			name: "nested schedule is ignored",
			src:  `export const config = { nested: { schedule: "@daily" } }`,
			want: "",
		},
		{
			name: "named helper import",
			src: `import { schedule } from "@netlify/functions"
export const handler = schedule("@hourly", async () => ({ statusCode: 200 }))`,
			want: "@hourly",
		},
		{
			name: "renamed helper import",
			src: `import { schedule as cron } from '@netlify/functions'
export const handler = cron('5 4 * * *', async () => {})`,
			want: "5 4 * * *",
		},
		{
			name: "namespace helper import",
			src: `import * as nf from "@netlify/functions"
export const handler = nf.schedule("@monthly", fn)`,
			want: "@monthly",
		},
		{
			name: "commonjs destructured require",
			src: `const { schedule } = require("@netlify/functions")
exports.handler = schedule("@yearly", fn)`,
			want: "@yearly",
		},
		{
			name: "commonjs namespace require",
			src: `const functions = require('@netlify/functions')
module.exports.handler = functions.schedule('@daily', fn)`,
			want: "@daily",
		},
		{
			name: "helper from unrelated module",
			src: `import { schedule } from "./local"
export const handler = schedule("@hourly", fn)`,
			want: "",
		},
		{
			name: "config export wins over helper",
			src: `import { schedule } from "@netlify/functions"
export const handler = schedule("@hourly", fn)
export const config = { schedule: "@daily" }`,
			want: "@daily",
		},
		{
			name: "commented declaration",
			src:  `// export const config = { schedule: "@daily" }`,
			want: "",
		},
		{
			name: "interpolated template",
			src:  "const every = '@daily'\nexport const config = { schedule: `${every}` }",
			want: "",
		},
		{
			name: "non-literal value",
			src:  "const every = '@daily'\nexport const config = { schedule: every }",
			want: "",
		},
		{
			name: "invalid cron expression",
			src:  `export const config = { schedule: "every tuesday" }`,
			want: "",
		},
		{
			name: "no declarations",
			src:  `export const handler = async () => ({ statusCode: 200 })`,
			want: "",
		},
	}

	e := NewExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := e.ExtractSource(context.Background(), "func.ts", "func", []byte(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want, values.Schedule)
		})
	}
}

func TestExtractSource_CustomHelperModule(t *testing.T) {
	src := []byte(`import { schedule } from "@acme/cron"
export const handler = schedule("@hourly", fn)`)

	values, err := NewExtractor([]string{"@acme/cron"}).ExtractSource(context.Background(), "f.js", "f", src)
	require.NoError(t, err)
	require.Equal(t, "@hourly", values.Schedule)

	values, err = NewExtractor(nil).ExtractSource(context.Background(), "f.js", "f", src)
	require.NoError(t, err)
	require.Empty(t, values.Schedule)
}

func TestExtractSource_SyntaxError(t *testing.T) {
	_, err := NewExtractor(nil).ExtractSource(context.Background(), "broken.js", "broken", []byte("const a = 'oops\n"))

	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.Equal(t, "broken.js", extractErr.Path)
	require.ErrorIs(t, err, jsscan.ErrSyntax)
}

func TestFindDeclarationsInPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.js")
	require.NoError(t, os.WriteFile(path, []byte(`export const config = { schedule: "@hourly" }`), 0o644))

	values, err := FindDeclarationsInPath(context.Background(), path, "hello")
	require.NoError(t, err)
	require.Equal(t, Values{Schedule: "@hourly"}, values)

	_, err = FindDeclarationsInPath(context.Background(), filepath.Join(dir, "missing.js"), "missing")
	var extractErr *ExtractError
	require.ErrorAs(t, err, &extractErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(nil).ExtractSource(ctx, "f.js", "f", []byte(`export const config = { schedule: "@daily" }`))
	require.ErrorIs(t, err, context.Canceled)
}

func TestBindings(t *testing.T) {
	require.Equal(t, []string{"schedule"}, bindings(" schedule, builder ", " as "))
	require.Equal(t, []string{"cron"}, bindings("schedule as cron", " as "))
	require.Equal(t, []string{"s"}, bindings("schedule: s", ":"))
	require.Nil(t, bindings("builder", " as "))
}
