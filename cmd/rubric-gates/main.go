// Command rubric-gates is the trust terminal for machine-generated clinical
// research artifacts: it evaluates artifacts against tiered rubrics, issues
// integrity-hashed certificates, and verifies certificates offline.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the dispatcher entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, nil)))

	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "evaluate":
		return runEvaluateCmd(args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "info":
		return runInfoCmd(args[2:], stdout, stderr)
	case "bench":
		return runBenchCmd(args[2:], stdout, stderr)
	case "manifest":
		return runManifestCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

// parseWithPositionals parses args with cmd, collecting positional arguments
// while allowing flags to appear after them, as the per-command usage strings
// (`<file> [flags]`) document.
func parseWithPositionals(cmd *flag.FlagSet, args []string) ([]string, error) {
	var positionals []string
	for {
		if err := cmd.Parse(args); err != nil {
			return nil, err
		}
		if cmd.NArg() == 0 {
			return positionals, nil
		}
		positionals = append(positionals, cmd.Arg(0))
		args = cmd.Args()[1:]
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: rubric-gates <command> [flags]

Commands:
  evaluate   Evaluate an artifact against the rubrics and emit a certificate
  verify     Verify a certificate (schema + integrity hash, optional drift)
  info       Show loaded rubric suites and their versions
  bench      Run a benchmark harness from a YAML run config
  manifest   Create or verify a dataset integrity manifest`)
}
