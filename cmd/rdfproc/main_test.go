package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs rdfproc with args and returns what it wrote to stdout and stderr.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{program}, args...))
	return out.String(), errOut.String(), err
}

func hashesStore(dir string) []string {
	return []string{"-s", "hashes", "-t", "hash-type='disk',dir='" + dir + "'"}
}

func withStore(store []string, args ...string) []string {
	return append(append([]string{}, store...), args...)
}

func TestCommands_Hashes(t *testing.T) {
	store := hashesStore(t.TempDir())

	out, _, err := runApp(t, withStore(store, "-n", "graph", "add", "http://example.org/a", "http://example.org/p", "http://example.org/b")...)
	require.NoError(t, err)
	assert.Contains(t, out, "rdfproc: added triple to model")

	_, _, err = runApp(t, withStore(store, "graph", "add", "http://example.org/a", "http://example.org/name", "Alice")...)
	require.NoError(t, err)
	_, _, err = runApp(t, withStore(store, "graph", "add", "http://example.org/c", "http://example.org/p", "http://example.org/b")...)
	require.NoError(t, err)

	t.Run("contains", func(t *testing.T) {
		out, _, err := runApp(t, withStore(store, "graph", "contains", "http://example.org/a", "http://example.org/p", "http://example.org/b")...)
		require.NoError(t, err)
		assert.Contains(t, out, "the model contains the triple")

		out, _, err = runApp(t, withStore(store, "graph", "contains", "http://example.org/b", "http://example.org/p", "http://example.org/a")...)
		require.NoError(t, err)
		assert.Contains(t, out, "does not contain the triple")
	})

	t.Run("find with wildcards", func(t *testing.T) {
		out, errOut, err := runApp(t, withStore(store, "graph", "find", "-", "http://example.org/p", "-")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Matched triple: {<http://example.org/a>, <http://example.org/p>, <http://example.org/b>}")
		assert.Contains(t, out, "Matched triple: {<http://example.org/c>, <http://example.org/p>, <http://example.org/b>}")
		assert.Contains(t, errOut, "matching triples: 2")
	})

	t.Run("literal object", func(t *testing.T) {
		out, _, err := runApp(t, withStore(store, "graph", "find", "-", "-", "Alice")...)
		require.NoError(t, err)
		assert.Contains(t, out, `<http://example.org/name>, "Alice"}`)
	})

	t.Run("sources and targets", func(t *testing.T) {
		out, errOut, err := runApp(t, withStore(store, "graph", "sources", "http://example.org/p", "http://example.org/b")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Matched node: <http://example.org/a>")
		assert.Contains(t, out, "Matched node: <http://example.org/c>")
		assert.Contains(t, errOut, "matching nodes: 2")

		out, _, err = runApp(t, withStore(store, "graph", "target", "http://example.org/a", "http://example.org/name")...)
		require.NoError(t, err)
		assert.Equal(t, "Matched node: \"Alice\"\n", out)

		_, _, err = runApp(t, withStore(store, "graph", "source", "http://example.org/p", "http://example.org/a")...)
		assert.ErrorIs(t, err, errNoMatch)
	})

	t.Run("arcs", func(t *testing.T) {
		out, _, err := runApp(t, withStore(store, "graph", "arcs-out", "http://example.org/a")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Matched arc: <http://example.org/p>")
		assert.Contains(t, out, "Matched arc: <http://example.org/name>")

		out, _, err = runApp(t, withStore(store, "graph", "arcs-in", "Alice")...)
		require.NoError(t, err)
		assert.Equal(t, "Matched arc: <http://example.org/name>\n", out)

		out, _, err = runApp(t, withStore(store, "graph", "has-arc-in", "http://example.org/b", "http://example.org/p")...)
		require.NoError(t, err)
		assert.Contains(t, out, "the model contains the arc")

		out, _, err = runApp(t, withStore(store, "graph", "has-arc-out", "http://example.org/b", "http://example.org/p")...)
		require.NoError(t, err)
		assert.Contains(t, out, "does not contain the arc")
	})

	t.Run("remove and print", func(t *testing.T) {
		out, _, err := runApp(t, withStore(store, "graph", "remove", "http://example.org/c", "http://example.org/p", "http://example.org/b")...)
		require.NoError(t, err)
		assert.Contains(t, out, "removed triple from model")

		out, _, err = runApp(t, withStore(store, "graph", "print")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Model graph with 2 statements:")
		assert.NotContains(t, out, "http://example.org/c")
	})

	t.Run("context ignored without contexts", func(t *testing.T) {
		_, errOut, err := runApp(t, withStore(store, "graph", "add", "http://example.org/d", "http://example.org/p", "http://example.org/b", "http://example.org/g")...)
		require.NoError(t, err)
		assert.Contains(t, errOut, "ignoring context <http://example.org/g>")
	})
}

func TestCommands_ParseSerialize(t *testing.T) {
	dir := t.TempDir()
	store := hashesStore(dir)

	doc := "<http://example.org/a> <http://example.org/p> <http://example.org/b> .\n" +
		"# comment\n" +
		"<http://example.org/b> <http://example.org/p> \"x\"@en .\n"
	path := filepath.Join(dir, "doc.nt")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, errOut, err := runApp(t, withStore(store, "-n", "graph", "parse", path)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Parsing file "+path+" with ntriples parser")
	assert.Contains(t, errOut, "Added 2 triples")

	out, errOut, err = runApp(t, withStore(store, "graph", "serialize", "ntriples")...)
	require.NoError(t, err)
	assert.Contains(t, out, "<http://example.org/a> <http://example.org/p> <http://example.org/b> .\n")
	assert.Contains(t, out, "<http://example.org/b> <http://example.org/p> \"x\"@en .\n")
	assert.Contains(t, errOut, "serialized 2 statements")

	t.Run("parse-stream", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.nq")
		require.NoError(t, os.WriteFile(bad, []byte("<http://example.org/a> <http://example.org/p> .\n"), 0644))

		_, _, err := runApp(t, withStore(store, "graph", "parse-stream", bad)...)
		assert.ErrorContains(t, err, "failed to parse as stream")

		_, errOut, err := runApp(t, withStore(store, "graph", "parse-stream", path, "nt")...)
		require.NoError(t, err)
		assert.Contains(t, errOut, "Added 2 triples")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := runApp(t, withStore(store, "graph", "serialize", "turtle")...)
		assert.ErrorContains(t, err, "unknown format")
	})
}

func TestCommands_Profile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "rdfproc.yaml")
	yamlDoc := "storage: sqlite\n" +
		"storage-options: dir='" + dir + "'\n" +
		"contexts: true\n"
	require.NoError(t, os.WriteFile(config, []byte(yamlDoc), 0644))

	_, _, err := runApp(t, "--config", config, "graph", "add-typed", "http://example.org/a", "http://example.org/born", "2001-02-03", "-", "http://www.w3.org/2001/XMLSchema#date", "http://example.org/g")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "graph.db"))
	require.NoError(t, err)

	out, _, err := runApp(t, "--config", config, "graph", "find", "-", "-", "-", "http://example.org/g")
	require.NoError(t, err)
	assert.Contains(t, out, `"2001-02-03"^^<http://www.w3.org/2001/XMLSchema#date>`)
	assert.Contains(t, out, "with context <http://example.org/g>")

	out, _, err = runApp(t, "--config", config, "graph", "serialize")
	require.NoError(t, err)
	assert.Contains(t, out, "<http://example.org/g> .\n")

	t.Run("flags override the profile", func(t *testing.T) {
		other := t.TempDir()
		_, _, err := runApp(t, "--config", config, "-t", "dir='"+other+"'", "graph", "add", "http://example.org/a", "http://example.org/p", "http://example.org/b")
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(other, "graph.db"))
		assert.NoError(t, err)
	})

	t.Run("missing profile", func(t *testing.T) {
		_, _, err := runApp(t, "--config", filepath.Join(dir, "missing.yaml"), "graph", "print")
		assert.ErrorContains(t, err, "failed to read config")
	})
}

func TestCommands_Errors(t *testing.T) {
	store := hashesStore(t.TempDir())

	t.Run("missing arguments", func(t *testing.T) {
		_, _, err := runApp(t, withStore(store, "graph")...)
		assert.ErrorContains(t, err, "expected STORE COMMAND")
	})

	t.Run("unknown command", func(t *testing.T) {
		_, _, err := runApp(t, withStore(store, "graph", "frobnicate")...)
		assert.ErrorContains(t, err, `unknown command "frobnicate"`)
	})

	t.Run("wrong argument count", func(t *testing.T) {
		_, _, err := runApp(t, withStore(store, "graph", "contains", "http://example.org/a")...)
		assert.ErrorContains(t, err, "contains: expected SUBJECT PREDICATE OBJECT")
	})

	t.Run("invalid storage options", func(t *testing.T) {
		_, _, err := runApp(t, "-s", "memory", "-t", "contexts='maybe'", "graph", "print")
		assert.ErrorIs(t, err, storage.ErrInvalidOption)
	})

	t.Run("unknown storage", func(t *testing.T) {
		_, _, err := runApp(t, "-s", "gdbm", "graph", "print")
		assert.ErrorIs(t, err, storage.ErrConfiguration)
	})

	t.Run("language and datatype", func(t *testing.T) {
		_, _, err := runApp(t, withStore(store, "-n", "graph", "add-typed", "http://example.org/a", "http://example.org/p", "x", "en", "http://example.org/dt")...)
		assert.ErrorIs(t, err, core.ErrLanguageAndDatatype)
	})
}

func TestParseArguments(t *testing.T) {
	t.Run("resources", func(t *testing.T) {
		n, err := parseResource("_:b1")
		require.NoError(t, err)
		assert.Equal(t, core.NewBlank("b1"), n)

		n, err = parseResource("<http://example.org/a>")
		require.NoError(t, err)
		assert.Equal(t, core.NewURI("http://example.org/a"), n)
	})

	t.Run("objects", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected core.Node
		}{
			{"http://example.org/a", core.NewURI("http://example.org/a")},
			{"urn:isbn:123", core.NewURI("urn:isbn:123")},
			{"hello world", core.NewLiteral("hello world", "")},
			{"a: b", core.NewLiteral("a: b", "")},
			{"42", core.NewLiteral("42", "")},
			{"x:", core.NewLiteral("x:", "")},
			{"1x:y", core.NewLiteral("1x:y", "")},
		}
		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				n, err := parseObject(tc.input)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, n)
			})
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		tm, err := term("-", parseResource)
		require.NoError(t, err)
		assert.False(t, tm.IsBound())
	})

	t.Run("help lists every command", func(t *testing.T) {
		help := commandHelp()
		for _, c := range commands {
			assert.True(t, strings.Contains(help, c.name), c.name)
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "warn",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		_, _, err := runApp(t, "--log-level", "loud", "graph", "print")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("default log level is warn", func(t *testing.T) {
		app := newApp()
		var found bool
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "log-level" {
				assert.Equal(t, "warn", f.Value)
				assert.Equal(t, []string{"l"}, f.Aliases)
				found = true
			}
		}
		assert.True(t, found)
	})
}
