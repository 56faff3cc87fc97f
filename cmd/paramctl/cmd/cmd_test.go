package cmd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/paramwire/internal/param"
	"github.com/danmuck/paramwire/internal/paramhost"
	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/danmuck/paramwire/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	testlog.Start(t)
	cases := map[string]param.Kind{
		"int":          param.KindInt32,
		"float32":      param.KindFloat32,
		"String":       param.KindString,
		"int-array":    param.KindInt32Array,
		"floats":       param.KindFloat32Array,
		"string-array": param.KindStringArray,
	}
	for raw, want := range cases {
		got, err := parseKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := parseKind("bool")
	assert.Error(t, err)
}

func TestValueOutput(t *testing.T) {
	testlog.Start(t)
	out := valueOutput("names", param.Strings([]string{"a", "bb"}))
	assert.Equal(t, "names", out.Name)
	assert.Equal(t, []string{"a", "bb"}, out.Value)
}

func TestInitWritesTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "params.toml")
	rootCmd.SetArgs([]string{"init", "--kind", "params", "--path", path})
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = paramhost.LoadStore(path)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"init", "--kind", "params", "--path", path})
	assert.Error(t, rootCmd.Execute())
}

func TestGetAgainstTCPHost(t *testing.T) {
	testlog.Start(t)
	store, err := paramhost.ParseStore("int = 42\nstring_array = [\"a\", \"bb\", \"ccc\"]\n")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			h := paramhost.NewHost(transport.NewTCP(conn), store)
			_ = h.Run(ctx, time.Millisecond)
			_ = conn.Close()
		}
	}()

	rootCmd.SetArgs([]string{"get", "int", "--address", ln.Addr().String()})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"get", "string_array", "--kind", "string-array", "--count", "3", "--address", ln.Addr().String()})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"get", "missing", "--address", ln.Addr().String(), "--kind", "int", "--count", "1"})
	assert.Error(t, rootCmd.Execute())
}
