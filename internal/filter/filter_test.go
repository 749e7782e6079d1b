package filter

import (
	"errors"
	"testing"
)

func TestCompile_Empty(t *testing.T) {
	f, err := Compile("  ")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if f != nil {
		t.Fatal("Expected nil filter for empty expression")
	}

	ok, err := f.Match(Fields{Name: "anything"})
	if err != nil || !ok {
		t.Errorf("Expected nil filter to match, got %v, %v", ok, err)
	}
}

func TestCompile_Invalid(t *testing.T) {
	tests := []string{
		"name ==",
		"unknown_var == 'x'",
		"name",
		"size(name)",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := Compile(expr)
			if !errors.Is(err, ErrInvalidExpr) {
				t.Errorf("Expected ErrInvalidExpr, got %v", err)
			}
		})
	}
}

func TestFilter_Match(t *testing.T) {
	fields := Fields{
		Name:      "hello",
		Runtime:   "js",
		Extension: ".ts",
		Schedule:  "@daily",
		MainFile:  "/project/functions/hello.ts",
		SrcFile:   "/project/functions/lib/util.ts",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`runtime == "js"`, true},
		{`runtime == "go"`, false},
		{`schedule != ""`, true},
		{`name.startsWith("hel") && extension in [".ts", ".js"]`, true},
		{`main_file.endsWith("/hello.ts")`, true},
		{`src_file.contains("/lib/")`, true},
		{`name.matches("^wor")`, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if f.String() != tt.expr {
				t.Errorf("String() = %q, want %q", f.String(), tt.expr)
			}

			got, err := f.Match(fields)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	f, err := Compile(`runtime == "js"`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	items := []string{"js", "go", "js", "archive"}
	kept, err := Apply(f, items, func(runtime string) Fields {
		return Fields{Runtime: runtime}
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(kept) != 2 {
		t.Errorf("Expected 2 items, got %d", len(kept))
	}

	all, err := Apply(nil, items, func(string) Fields { return Fields{} })
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(all) != len(items) {
		t.Errorf("Expected nil filter to keep all items, got %d", len(all))
	}
}
