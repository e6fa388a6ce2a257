package detect

import (
	"reflect"
	"testing"
)

func TestDetectFocus(t *testing.T) {
	cases := []struct {
		name    string
		files   []string
		commits []Commit
		want    string
	}{
		{
			name: "no signal falls back to infrastructure",
			want: "Infrastructure hardening",
		},
		{
			name:  "terraform files",
			files: []string{"infra/main.tf", "infra/vars.tf"},
			want:  "Infrastructure hardening",
		},
		{
			name:  "auth work",
			files: []string{"internal/auth/jwt.go"},
			commits: []Commit{
				{Message: "tighten permission checks"},
				{Message: "rotate jwt secret"},
			},
			want: "Security hardening",
		},
		{
			name:    "commit signal weighs double",
			files:   []string{"notes.txt"},
			commits: []Commit{{Message: "add pytest coverage for parser"}},
			want:    "Testing improvements",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFocus(tc.files, tc.commits); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSuggestOutput(t *testing.T) {
	if got := SuggestOutput([]string{"pkg/parser_test.go"}, nil); got != "Comprehensive test coverage" {
		t.Errorf("got %q", got)
	}
	// File signals outrank commit text.
	if got := SuggestOutput([]string{"infra/main.tf"}, []Commit{{Message: "fix typo"}}); got != "Deployment plan" {
		t.Errorf("got %q", got)
	}
	if got := SuggestOutput(nil, []Commit{{Message: "fix crash on empty body"}}); got != "Bug fix" {
		t.Errorf("got %q", got)
	}
	if got := SuggestOutput(nil, nil); got != "Working implementation" {
		t.Errorf("got %q", got)
	}
}

func TestDetectConstraints(t *testing.T) {
	got := DetectConstraints([]string{"infra/main.tf", "api/routes.go", "db/schema.sql", "go.mod"})
	want := []string{"infrastructure safety", "backward compatibility", "data integrity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v (capped at three)", got, want)
	}

	got = DetectConstraints(nil)
	want = []string{"maintainability", "performance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("defaults = %v", got)
	}
}

func TestDetect(t *testing.T) {
	ctx := Detect([]string{"api/routes.go"}, []Commit{{Message: "add endpoint"}})
	if ctx.Focus != "API debugging" {
		t.Errorf("focus = %q", ctx.Focus)
	}
	if ctx.FileCount != 1 || ctx.CommitCount != 1 {
		t.Errorf("counts = %d/%d", ctx.FileCount, ctx.CommitCount)
	}
}
