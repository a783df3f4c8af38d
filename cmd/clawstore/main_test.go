package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer

	code := run([]string{"put", "--dir", dir, "hello", "world"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	out.Reset()
	code = run([]string{"get", "--dir", dir, "hello"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	require.Equal(t, "world\n", out.String())
}

func TestGetMissingKeyExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer

	code := run([]string{"get", "--dir", dir, "missing"}, &out, &errOut)
	require.Equal(t, 1, code)
}

func TestDeleteThenGetFails(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer

	require.Equal(t, 0, run([]string{"put", "--dir", dir, "k", "v"}, &out, &errOut))
	require.Equal(t, 0, run([]string{"delete", "--dir", dir, "k"}, &out, &errOut))

	out.Reset()
	code := run([]string{"get", "--dir", dir, "k"}, &out, &errOut)
	require.Equal(t, 1, code)
}

func TestScanAndCount(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer

	require.Equal(t, 0, run([]string{"put", "--dir", dir, "user:1", "alice"}, &out, &errOut))
	require.Equal(t, 0, run([]string{"put", "--dir", dir, "user:2", "bob"}, &out, &errOut))
	require.Equal(t, 0, run([]string{"put", "--dir", dir, "order:1", "widget"}, &out, &errOut))

	out.Reset()
	require.Equal(t, 0, run([]string{"scan", "--dir", dir, "user:"}, &out, &errOut))
	require.Equal(t, "1=alice\n2=bob\n", out.String())

	out.Reset()
	require.Equal(t, 0, run([]string{"count", "--dir", dir, "user:"}, &out, &errOut))
	require.Equal(t, "2\n", out.String())
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"version"}, &out, &errOut)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "clawstore")
}

func TestUnknownCommandExitsNonZero(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"bogus"}, &out, &errOut)
	require.Equal(t, 1, code)
}

func TestNoArgsPrintsUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{}, &out, &errOut)
	require.Equal(t, 1, code)
	require.Contains(t, out.String(), "Usage:")
}
