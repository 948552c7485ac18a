package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easel/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err)
	return out
}

func TestCLIDocumentRoundTrip(t *testing.T) {
	t.Setenv("EASEL_DATA_DIR", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.easel")

	out, err := run(t, "new", path, "--name", "Sketch")
	require.NoError(t, err)
	assert.Contains(t, out, "Sketch")

	out, err = run(t, "node", "add", path, "--type", "ellipse", "--width", "40", "--height", "20")
	require.NoError(t, err)
	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &node))
	assert.Equal(t, 20.0, node["rx"])
	id := node["id"].(string)

	out, err = run(t, "node", "add", path, "--type", "text", "--font-size", "0")
	require.NoError(t, err)
	var text map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &text))
	assert.Equal(t, 0.0, text["fontSize"])
	assert.Equal(t, "Text", text["name"])
	mustRun(t, "node", "rm", path, text["id"].(string))

	out, err = run(t, "node", "set", path, id, "--props", `{"fill":"#123456"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "#123456")

	out, err = run(t, "cat", path, "--node", id)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = run(t, "ls", dir)
	require.NoError(t, err)
	assert.Equal(t, path+"\tSketch\t1\n", out)

	out, err = run(t, "node", "rm", path, id, "ghost")
	require.NoError(t, err)
	var res struct {
		Deleted  []string `json:"deleted"`
		NotFound []string `json:"notFound"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{id}, res.Deleted)
	assert.Equal(t, []string{"ghost"}, res.NotFound)

	out, err = run(t, "cat", path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"objects": []`), out)
}

func TestCLIErrors(t *testing.T) {
	t.Setenv("EASEL_DATA_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "x.easel")

	_, err := run(t, "node", "add", path, "--type", "star")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = run(t, "node", "set", path, "id", "--props", "nope")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = run(t, "cat", path)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = run(t, "--store", "s3", "ls", ".")
	assert.Error(t, err)
}

func TestCLIConfigFlagsResolveOnce(t *testing.T) {
	t.Setenv("EASEL_DATA_DIR", t.TempDir())
	t.Setenv("EASEL_DB_DSN", "")

	t.Setenv("EASEL_DB_DRIVER", "sqlite")
	c := &cli{dbDriver: "postgres"}
	err := c.loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EASEL_DB_DSN")

	t.Setenv("EASEL_DB_DRIVER", "postgres")
	c = &cli{dbDSN: "postgres://localhost/easel"}
	require.NoError(t, c.loadConfig())
	assert.Equal(t, "postgres", c.cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/easel", c.cfg.DBDSN)

	t.Setenv("EASEL_DB_DRIVER", "sqlite")
	dataDir := t.TempDir()
	c = &cli{dataDir: dataDir}
	require.NoError(t, c.loadConfig())
	assert.Equal(t, filepath.Join(dataDir, "easel.db"), c.cfg.DBDSN)
}
