package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/oy3o/ber"
	"github.com/oy3o/ber/compress"
)

type point struct{ X, Y int64 }

func (p *point) Visit(v ber.Visitor, name string) error {
	if err := v.StartStruct(nil, name); err != nil {
		return err
	}
	if err := v.VisitInt64(&p.X, "x"); err != nil {
		return err
	}
	if err := v.VisitInt64(&p.Y, "y"); err != nil {
		return err
	}
	return v.EndStruct()
}

func encoded(t *testing.T, mode ber.Mode) []byte {
	t.Helper()
	data, err := ber.Marshal(&point{X: 3, Y: -4}, mode)
	require.NoError(t, err)
	return data
}

func TestRunText(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(nil, bytes.NewReader(encoded(t, ber.Streaming)), &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "SEQUENCE (constructed) len=indefinite")
	assert.Contains(t, out, "INTEGER len=1 3")
	assert.Contains(t, out, "INTEGER len=1 -4")
}

func TestRunJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--format", "json"}, bytes.NewReader(encoded(t, ber.Buffered)), &stdout, &stderr))

	var nodes []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.EqualValues(t, 6, nodes[0]["length"])
	assert.Len(t, nodes[0]["children"], 2)
	assert.Equal(t, "universal", nodes[0]["tag"].(map[string]any)["class"])
}

func TestRunCBOR(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--format=cbor"}, bytes.NewReader(encoded(t, ber.Buffered)), &stdout, &stderr))

	var nodes []map[string]any
	require.NoError(t, cbor.Unmarshal(stdout.Bytes(), &nodes))
	require.Len(t, nodes, 1)
	assert.Contains(t, nodes[0], "children")
}

func TestRunCompressedFile(t *testing.T) {
	data := encoded(t, ber.Buffered)
	for _, alg := range []compress.Algorithm{compress.Zstd, compress.LZ4} {
		t.Run(alg.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := compress.NewWriter(&buf, alg)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			path := filepath.Join(t.TempDir(), "point.ber")
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

			var stdout, stderr bytes.Buffer
			require.NoError(t, run([]string{"--sum", path}, strings.NewReader(""), &stdout, &stderr))

			sum := blake3.Sum256(data)
			assert.Contains(t, stdout.String(), "blake3-256 "+hex.EncodeToString(sum[:]))
			assert.Contains(t, stdout.String(), "INTEGER len=1 -4")
		})
	}
}

func TestRunConfigAndDepth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ber.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 1\n"), 0o644))
	nested := []byte{0x30, 0x02, 0x30, 0x00}

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", path}, bytes.NewReader(nested), &stdout, &stderr)
	assert.ErrorIs(t, err, ber.ErrNestingTooDeep)

	stdout.Reset()
	err = run([]string{"--config", path, "--max-depth", "2"}, bytes.NewReader(nested), &stdout, &stderr)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout.String(), "SEQUENCE"))
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		in   []byte
	}{
		{"UnknownFormat", []string{"--format", "xml"}, []byte{0x02, 0x01, 0x00}},
		{"UnknownCompression", []string{"--compress", "brotli"}, nil},
		{"BadFlag", []string{"--nope"}, nil},
		{"TooManyArgs", []string{"a", "b"}, nil},
		{"MissingFile", []string{"/nonexistent/input.ber"}, nil},
		{"Corrupt", nil, []byte{0x30, 0x89}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(tc.args, bytes.NewReader(tc.in), &stdout, &stderr))
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-h"}, bytes.NewReader(nil), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--compress")
}
