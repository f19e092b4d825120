package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract(t *testing.T) {
	out, _, err := execute(t, "Sure!\n```json\n{\"title\": \"Spill\"}\n```", "extract")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"title\": \"Spill\"\n}\n", out)

	_, _, err = execute(t, "no braces here", "extract")
	assert.EqualError(t, err, "no JSON object found")
}

func TestParse_LabelledText(t *testing.T) {
	path := writeFile(t, "analysis.txt", "WHO: Operator\nWHAT: Press jam")
	out, _, err := execute(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"WHO": "Operator"`)
	assert.Contains(t, out, `"WHAT": "Press jam"`)
}

func TestMerge(t *testing.T) {
	base := writeFile(t, "base.json", `{"title": "Spill", "items": [{"id": 1}], "capa": {"owner": "QA"}}`)
	update := writeFile(t, "update.json", `{"items": [{"id": 1}, {"id": 2}], "capa": {"due": "Friday"}, "note": "x"}`)

	out, stderr, err := execute(t, "", "merge", "--union", "items", base, update)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Spill",
		"items": [{"id": 1}, {"id": 2}],
		"capa": {"owner": "QA", "due": "Friday"},
		"note": "x"
	}`, out)
	assert.Equal(t, "added: note\nmissing: title\n", stderr)

	_, _, err = execute(t, "", "merge", base)
	assert.Error(t, err)
}

func TestCoerce(t *testing.T) {
	out, _, err := execute(t, "Assessment follows\nCRITICALITY: Major\n", "coerce")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "DEVIATION_TRIAGE: No", lines[0])
	assert.Equal(t, "CRITICALITY: Major", lines[7])

	out, _, err = execute(t, "WHO: Operator", "coerce", "--format", "incident")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "===ANALYSIS START===\nINCIDENT_TITLE: Not specified\n"))

	_, _, err = execute(t, "", "coerce", "--format", "capa")
	assert.ErrorContains(t, err, "unknown format")
}

func TestClassify(t *testing.T) {
	out, _, err := execute(t, "", "classify", "please", "remove", "the", "second", "paragraph")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "content_removal\n"))
}

func TestValidateUser(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		roles    []string
		wantErr  string
	}{
		{"valid", "QA Lead", "qa@example.com", "secret123", []string{"user", "admin"}, ""},
		{"blank name", " ", "qa@example.com", "secret123", []string{"user"}, "name is required"},
		{"bad email", "QA", "qa@", "secret123", []string{"user"}, "invalid email format"},
		{"short password", "QA", "qa@example.com", "s3", []string{"user"}, "at least 8 characters"},
		{"no digit", "QA", "qa@example.com", "secretpassword", []string{"user"}, "one letter and one number"},
		{"no roles", "QA", "qa@example.com", "secret123", nil, "at least one role"},
		{"unknown role", "QA", "qa@example.com", "secret123", []string{"owner"}, "unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUser(tt.userName, tt.email, tt.password, tt.roles)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSeedUser_NeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, _, err := execute(t, "", "seed-user", "--name", "QA", "--email", "qa@example.com", "--password", "secret123")
	assert.ErrorIs(t, err, errNoDBFlag)
}
