package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gourmet/internal/exchange"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// env is one isolated gourmet installation.
type env struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(envName(key), "")
	}
	return &env{t: t, configDir: t.TempDir(), dataDir: t.TempDir()}
}

type result struct {
	stdout string
	stderr string
	code   int
	err    error
}

// run executes gourmet in-process with the given stdin.
func (e *env) run(stdin string, args ...string) result {
	e.t.Helper()
	root := NewRootCmd()
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return result{stdout: out.String(), stderr: errb.String(), code: exitCode(err), err: err}
}

// ok runs a command that must succeed.
func (e *env) ok(args ...string) string {
	e.t.Helper()
	res := e.run("", args...)
	require.NoError(e.t, res.err, "gourmet %v", args)
	return res.stdout
}

// records returns every record in id order.
func (e *env) records() []types.Record {
	e.t.Helper()
	var recs []types.Record
	require.NoError(e.t, json.Unmarshal([]byte(e.ok("export", "--out", "-")), &recs))
	return recs
}

// pngHeader sniffs as image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	assert.Contains(t, e.ok("version"), "gourmet v"+Version)
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	out := e.ok("init")
	assert.Contains(t, out, "Gourmet initialized")
	assert.FileExists(t, filepath.Join(e.dataDir, "gourmet.db"))

	cfg, err := readConfigFile(filepath.Join(e.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, cfg.Backend)
	assert.Equal(t, e.dataDir, cfg.DataDir)
	assert.Equal(t, exchange.DefaultPrefix, cfg.Export.Prefix)

	e.ok("init")
}

func TestAddListShow(t *testing.T) {
	e := newEnv(t)

	out := e.ok("add", "--name", "Cafe Luna", "--date", "2024-05-01", "--rating", "4",
		"--tags", "coffee, brunch", "--comment", "good latte", "--favorite")
	assert.Contains(t, out, "Saved record 1: Cafe Luna")
	e.ok("add", "--name", "Ramen Taro", "--date", "2024-05-02")

	list := e.ok("list")
	assert.Contains(t, list, "Cafe Luna")
	assert.Contains(t, list, "Ramen Taro")
	assert.Contains(t, list, "Total: 2 record(s)")

	assert.NotContains(t, e.ok("list", "--search", "LUNA"), "Ramen")
	assert.NotContains(t, e.ok("list", "--favorites"), "Ramen")
	assert.Contains(t, e.ok("list", "--search", "sushi"), "No records found.")

	var listed []types.Record
	require.NoError(t, json.Unmarshal([]byte(e.ok("--json", "list", "--sort", "name")), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Ramen Taro", listed[1].ShopName)

	show := e.ok("show", "1")
	assert.Contains(t, show, "Cafe Luna")
	assert.Contains(t, show, "coffee, brunch")
	assert.Contains(t, show, "good latte")
	assert.Contains(t, show, "****.")

	recs := e.records()
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"coffee", "brunch"}, recs[0].Tags)
	assert.True(t, recs[0].Favorite)
	assert.NotZero(t, recs[0].CreatedAt)
}

func TestUserErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing name", []string{"add", "--date", "2024-05-01"}},
		{"blank date", []string{"add", "--name", "Cafe", "--date", "  "}},
		{"rating out of range", []string{"add", "--name", "Cafe", "--date", "2024-05-01", "--rating", "6"}},
		{"unknown record", []string{"show", "42"}},
		{"bad id", []string{"show", "abc"}},
		{"zero id", []string{"delete", "0", "--yes"}},
		{"missing argument", []string{"show"}},
		{"unknown flag", []string{"list", "--colour"}},
		{"unknown sort key", []string{"list", "--sort", "price"}},
		{"edit unknown record", []string{"edit", "42", "--rating", "2"}},
		{"bad export format", []string{"export", "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			res := e.run("", tt.args...)
			assert.Error(t, res.err)
			assert.Equal(t, exitUserError, res.code, "error: %v", res.err)
		})
	}
}

func TestEditChangesOnlyGivenFlags(t *testing.T) {
	e := newEnv(t)
	e.ok("add", "--name", "Cafe Luna", "--date", "2024-05-01", "--rating", "3", "--tags", "coffee")
	before := e.records()[0]

	assert.Contains(t, e.ok("edit", "1", "--favorite", "--name", "Cafe Sol"), "Updated record 1: Cafe Sol")

	after := e.records()[0]
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, "Cafe Sol", after.ShopName)
	assert.True(t, after.Favorite)
	assert.Equal(t, 3, after.Rating)
	assert.Equal(t, []string{"coffee"}, after.Tags)

	e.ok("edit", "1", "--rating", "0", "--tags", "")
	after = e.records()[0]
	assert.Zero(t, after.Rating)
	assert.Empty(t, after.Tags)
}

func TestPhotos(t *testing.T) {
	e := newEnv(t)
	photo := filepath.Join(t.TempDir(), "lunch.png")
	require.NoError(t, os.WriteFile(photo, pngHeader, 0o644))

	e.ok("add", "--name", "Cafe", "--date", "2024-05-01", "--photo", photo)
	assert.Len(t, e.records()[0].Images, 1)
	assert.True(t, strings.HasPrefix(e.records()[0].Images[0], "data:image/png;base64,"))

	e.ok("edit", "1", "--photo", photo)
	assert.Len(t, e.records()[0].Images, 2)
	assert.Contains(t, e.ok("show", "1"), "image/png")

	e.ok("edit", "1", "--clear-photos")
	assert.Empty(t, e.records()[0].Images)

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("hello"), 0o644))
	res := e.run("", "edit", "1", "--photo", notImage)
	assert.Equal(t, exitUserError, res.code)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	e.ok("add", "--name", "Cafe", "--date", "2024-05-01")

	res := e.run("n\n", "delete", "1")
	assert.ErrorIs(t, res.err, types.ErrDeclined)
	assert.Contains(t, res.stdout, "Delete record 1 (Cafe)?")
	assert.Len(t, e.records(), 1)

	res = e.run("y\n", "delete", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted record 1.")
	assert.Empty(t, e.records())

	res = e.run("", "delete", "1", "--yes")
	assert.ErrorIs(t, res.err, types.ErrNotFound)
}

func TestExportImport(t *testing.T) {
	for _, name := range []string{"backup.json", "backup.jsonl", "backup.json.zst"} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t)
			e.ok("add", "--name", "A", "--date", "2024-05-01", "--rating", "5")
			e.ok("add", "--name", "B", "--date", "2024-05-02", "--tags", "x")

			path := filepath.Join(t.TempDir(), name)
			args := []string{"export", "--out", path}
			if strings.HasSuffix(name, ".zst") {
				args = append(args, "--compress")
			}
			assert.Contains(t, e.ok(args...), "Exported 2 records to "+path)

			res := e.run("yes\n", "import", path)
			require.NoError(t, res.err)
			assert.Contains(t, res.stdout, "Imported 2 records (batch ")

			recs := e.records()
			require.Len(t, recs, 4)
			for i := 0; i < 2; i++ {
				orig, dup := recs[i], recs[i+2]
				assert.NotEqual(t, orig.ID, dup.ID)
				orig.ID, dup.ID = 0, 0
				assert.Equal(t, orig, dup)
			}
		})
	}
}

func TestExportDefaultName(t *testing.T) {
	e := newEnv(t)
	t.Setenv(envName(cfgKeyExportPrefix), "mine")
	dir := t.TempDir()
	t.Chdir(dir)

	out := e.ok("export", "--format", "jsonl")
	assert.Contains(t, out, "Exported 0 records to mine_")

	matches, err := filepath.Glob(filepath.Join(dir, "mine_*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestExportStdout(t *testing.T) {
	e := newEnv(t)
	e.ok("add", "--name", "A", "--date", "2024-05-01")

	var recs []types.Record
	require.NoError(t, json.Unmarshal([]byte(e.ok("export", "--out", "-")), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].ID)
}

func TestImportFailures(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"shopName":"x"}`), 0o644))
	res := e.run("", "import", bad, "--yes")
	assert.ErrorIs(t, res.err, types.ErrParse)
	assert.Equal(t, exitUserError, res.code)

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"id":9,"shopName":"x","visitDate":"2024-01-01"}]`), 0o644))
	res = e.run("no\n", "import", good)
	assert.ErrorIs(t, res.err, types.ErrDeclined)
	assert.Empty(t, e.records())

	res = e.run("", "import", filepath.Join(dir, "missing.json"), "--yes")
	assert.Equal(t, exitSysError, res.code)
}

func TestImportRejectsMistypedMembers(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "typed.json")
	body := `[{"shopName":"A","visitDate":"2024-01-01","rating":"5"},{"shopName":"B","tags":"x, y"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	res := e.run("", "import", path, "--yes")
	assert.ErrorIs(t, res.err, types.ErrParse)
	assert.Equal(t, exitUserError, res.code)
	assert.Empty(t, e.records())
}

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func TestExportCompressesZstName(t *testing.T) {
	e := newEnv(t)
	e.ok("add", "--name", "A", "--date", "2024-05-01")
	dir := t.TempDir()

	zst := filepath.Join(dir, "backup.json.zst")
	e.ok("export", "--out", zst)
	data, err := os.ReadFile(zst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, zstdMagic))

	plain := filepath.Join(dir, "plain.json.zst")
	e.ok("export", "--out", plain, "--compress=false")
	data, err = os.ReadFile(plain)
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(data, zstdMagic), "an explicit flag wins over the name")

	shellOut := filepath.Join(dir, "shell.jsonl.zst")
	res := e.run(fmt.Sprintf("export %s\n", shellOut), "shell")
	require.NoError(t, res.err)
	data, err = os.ReadFile(shellOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, zstdMagic))
}

func TestConfigValidation(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileExt), []byte("backend: indexeddb\n"), 0o644))

	res := e.run("", "list")
	assert.ErrorIs(t, res.err, types.ErrBackendUnknown)
	assert.Equal(t, exitUserError, res.code)
}

func TestLogLevel(t *testing.T) {
	e := newEnv(t)

	res := e.run("", "--log-level", "debug", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "configuration loaded")

	res = e.run("", "--log-level", "loud", "list")
	assert.Equal(t, exitUserError, res.code)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitSuccess},
		{types.ErrValidation, exitUserError},
		{fmt.Errorf("editing record 3: %w", types.ErrNotFound), exitUserError},
		{fmt.Errorf("%w: disk", types.ErrStoreUnavailable), exitSysError},
		{errors.New("boom"), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestShellSession(t *testing.T) {
	e := newEnv(t)
	script := strings.Join([]string{
		"new",
		"save",
		"name Cafe Luna",
		"date 2024-05-01",
		"tags coffee, brunch",
		"rate 4",
		"fav on",
		"save",
		"show 1",
		"edit",
		"name Cafe Sol",
		"save",
		"back",
		"new",
		"cancel",
		"y",
		"show 7",
		"bogus",
		"sort price",
		"quit",
	}, "\n") + "\n"

	res := e.run(script, "shell")
	require.NoError(t, res.err)
	out := res.stdout
	assert.Contains(t, out, "gourmet:new> ")
	assert.Contains(t, out, "required", "validation failure is reported")
	assert.Contains(t, out, "Record saved.")
	assert.Contains(t, out, "gourmet:edit#1> ")
	assert.Contains(t, out, "Record updated.")
	assert.Contains(t, out, "Discard your changes? [y/N]")
	assert.Contains(t, out, "Record not found.")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "invalid sort key")

	recs := e.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Cafe Sol", recs[0].ShopName)
	assert.Equal(t, 4, recs[0].Rating)
	assert.True(t, recs[0].Favorite)
	assert.Equal(t, []string{"coffee", "brunch"}, recs[0].Tags)
}

func TestShellBackup(t *testing.T) {
	e := newEnv(t)
	e.ok("add", "--name", "A", "--date", "2024-05-01")
	path := filepath.Join(t.TempDir(), "backup.jsonl")

	res := e.run(fmt.Sprintf("export %s\nimport %s\ny\n", path, path), "shell")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Exported 1 records.")
	assert.Contains(t, res.stdout, "Backup written to "+path)
	assert.Contains(t, res.stdout, "Imported 1 records.")
	assert.Len(t, e.records(), 2)
}
