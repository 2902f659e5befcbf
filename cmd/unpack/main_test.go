package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unpack"
	"github.com/meigma/unpack/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunCatDetects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tgz := testutil.WriteFixture(t, dir, "samples.tar.gz")
	tarball := testutil.WriteFixture(t, dir, "samples.tar")
	zst := testutil.WriteFixture(t, dir, "sample_1.csv.zst")

	// detection is one level deep: the gzip layer of a tgz is stripped only
	out, _, err := runCLI(t, tarball, zst)
	require.NoError(t, err)
	assert.Equal(t, testutil.Sample1+testutil.Sample2+testutil.Sample1, out)

	out, _, err = runCLI(t, "-f", "tgz", tgz)
	require.NoError(t, err)
	assert.Equal(t, testutil.Sample1+testutil.Sample2, out)
}

func TestRunOutputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := testutil.WriteFixture(t, dir, "sample_1.csv.xz")
	target := filepath.Join(dir, "out.csv")

	out, _, err := runCLI(t, "-o", target, "--buffer-size", "3", in)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, testutil.Sample1, string(data))
}

func TestRunDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipped := testutil.WriteFixture(t, dir, "samples.zip")
	gz := testutil.WriteFixture(t, dir, "sample_1.csv.gz")

	out, _, err := runCLI(t, "--digest", "-j", "2", gz, zipped)
	require.NoError(t, err)

	d1 := digest.FromString(testutil.Sample1)
	d2 := digest.FromString(testutil.Sample2)
	want := fmt.Sprintf("%s  sample_1.csv.gz#0  6\n%s  samples.zip#0  6\n%s  samples.zip#1  6\n", d1, d1, d2)
	assert.Equal(t, want, out)
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := testutil.WriteFixture(t, dir, "samples.tar.bz2")
	cfgPath := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: tar.bz2\n"), 0o600))

	out, _, err := runCLI(t, "-c", cfgPath, in)
	require.NoError(t, err)
	assert.Equal(t, testutil.Sample1+testutil.Sample2, out)

	// an explicit flag overrides the file
	_, _, err = runCLI(t, "-c", cfgPath, "-f", "gz", in)
	require.ErrorIs(t, err, unpack.ErrFormatMismatch)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t)
	require.Error(t, err)

	_, _, err = runCLI(t, "-f", "gz tar rar", "x")
	require.ErrorIs(t, err, unpack.ErrUnsupportedFormat)

	_, _, err = runCLI(t, filepath.Join(t.TempDir(), "missing.tgz"))
	require.ErrorIs(t, err, unpack.ErrIO)

	_, stderr, err := runCLI(t, "--help")
	require.ErrorIs(t, err, pflag.ErrHelp)
	assert.Contains(t, stderr, "Usage: unpack")
}

func TestRunListFormats(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "--list-formats")
	require.NoError(t, err)
	assert.Contains(t, out, "archives:")
	assert.Contains(t, out, "tar")
	assert.Contains(t, out, "zstd")
}
