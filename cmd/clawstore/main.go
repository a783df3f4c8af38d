// Command clawstore is a CLI front end for the embeddable storage engine:
// put/get/delete/scan/compact against a store directory, one invocation
// per operation.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/clawstore/clawstore/internal/config"
	"github.com/clawstore/clawstore/internal/engine"
	"github.com/clawstore/clawstore/internal/version"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(out)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "put":
		return cmdPut(out, errOut, rest)
	case "get":
		return cmdGet(out, errOut, rest)
	case "delete":
		return cmdDelete(out, errOut, rest)
	case "scan":
		return cmdScan(out, errOut, rest)
	case "count":
		return cmdCount(out, errOut, rest)
	case "compact":
		return cmdCompact(out, errOut, rest)
	case "version", "--version":
		fmt.Fprintf(out, "clawstore %s (built %s)\n", version.Version, version.BuildTime)
		return 0
	case "-h", "--help", "help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "clawstore: unknown command %q\n", cmd)
		printUsage(errOut)
		return 1
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Usage: clawstore <command> --dir <path> [options]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  put <key> <value>   Write a key-value pair durably")
	fmt.Fprintln(out, "  get <key>           Print a key's value, or exit 1 if absent")
	fmt.Fprintln(out, "  delete <key>        Remove a key durably")
	fmt.Fprintln(out, "  scan <prefix>       List every key-value pair under a prefix")
	fmt.Fprintln(out, "  count <prefix>      Count keys under a prefix")
	fmt.Fprintln(out, "  compact             Compact data files exceeding the dead-space ratio")
}

func openEngine(dir string) (*engine.Engine, error) {
	return engine.Open(dir, config.Default())
}

func cmdPut(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" || fs.NArg() != 2 {
		fmt.Fprintln(errOut, "usage: clawstore put --dir <path> <key> <value>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	if err := e.Put([]byte(fs.Arg(0)), []byte(fs.Arg(1))); err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	return 0
}

func cmdGet(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: clawstore get --dir <path> <key>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	value, ok := e.Get([]byte(fs.Arg(0)))
	if !ok {
		return 1
	}
	fmt.Fprintln(out, string(value))
	return 0
}

func cmdDelete(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: clawstore delete --dir <path> <key>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	if err := e.Delete([]byte(fs.Arg(0))); err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	return 0
}

func cmdScan(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: clawstore scan --dir <path> <prefix>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	for _, pair := range e.PrefixScan([]byte(fs.Arg(0))) {
		fmt.Fprintf(out, "%s=%s\n", pair[0], pair[1])
	}
	return 0
}

func cmdCount(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: clawstore count --dir <path> <prefix>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	fmt.Fprintln(out, e.PrefixCount([]byte(fs.Arg(0))))
	return 0
}

func cmdCompact(out, errOut io.Writer, args []string) int {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.StringP("dir", "d", "", "store directory")
	if err := fs.Parse(args); err != nil || *dir == "" {
		fmt.Fprintln(errOut, "usage: clawstore compact --dir <path>")
		return 1
	}

	e, err := openEngine(*dir)
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	defer e.Close()

	results, err := e.Compact()
	if err != nil {
		fmt.Fprintln(errOut, "clawstore:", err)
		return 1
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: %d -> %d entries (%d bytes saved)\n", r.FilePath, r.OriginalEntries, r.LiveEntries, r.BytesSaved())
	}
	return 0
}
