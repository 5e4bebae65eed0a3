// Command ippoolctl is the CLI frontend (C10): parses the positional
// server/pool/range arguments and the repeatable, order-sensitive
// -a/-d/-r/-s/-p options into a list of Operations, runs each against the
// Redis cluster, and prints its result.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wingedpig/ippoolctl/internal/config"
	"github.com/wingedpig/ippoolctl/pkg/operation"
	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

const version = "1.0.0"

// verbosity is raised by repeated -x flags; logInfo/logDebug are gated on it.
var verbosity int

func logInfo(format string, args ...interface{}) {
	if verbosity >= 1 {
		fmt.Fprintf(os.Stderr, "INFO: "+format+"\n", args...)
	}
}

func logDebug(format string, args ...interface{}) {
	if verbosity >= 2 {
		fmt.Fprintf(os.Stderr, "DEBUG: "+format+"\n", args...)
	}
}

func logWarn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "WARN: "+format+"\n", args...)
}

func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is main's body, factored out so tests can drive it without os.Exit.
func run(args []string) int {
	parsed, err := parseArgs(args)
	if err == errUsageRequested {
		printUsage(os.Stdout)
		return 0
	}
	if err == errNotImplemented {
		fmt.Fprintln(os.Stderr, "NOT YET IMPLEMENTED")
		return 1
	}
	if err != nil {
		logError("%v", err)
		printUsage(os.Stderr)
		return 64
	}
	verbosity = parsed.verbosity

	cfg := config.Default()
	if parsed.cfgPath != "" {
		loaded, err := config.Load(parsed.cfgPath)
		if err != nil {
			logError("%v", err)
			return 1
		}
		cfg = loaded
		logInfo("loaded config from %s (pipeline_depth=%d dial_timeout=%s dial_retries=%d dial_rate_limit=%.1f)",
			parsed.cfgPath, cfg.PipelineDepth, cfg.DialTimeout, cfg.DialRetries, cfg.DialRateLimit)
	}

	ops := make([]operation.Operation, 0, len(parsed.opSpecs))
	for _, spec := range parsed.opSpecs {
		op, err := operation.New(spec.kind, parsed.pool, parsed.rangeID, spec.rangeText, spec.prefix)
		if err != nil {
			logError("%s %s: %v", spec.kind, spec.rangeText, err)
			return 1
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		logError("no operations given (need at least one of -a/-d/-r/-s)")
		printUsage(os.Stderr)
		return 64
	}

	dialer := redistransport.NewDialer(cfg.DialTimeout, cfg.DialRetries, cfg.DialRateLimit, parsed.server)
	defer dialer.Close()

	now := time.Now()
	for _, op := range ops {
		logInfo("running %s %s/%d", op.Kind, op.Start, op.Prefix)
		conn := dialer.NewConn()
		result, err := operation.RunWithDepth(conn, op, cfg.PipelineDepth)
		if err != nil {
			logError("%s %s: %v", op.Kind, op.OriginalText, err)
			return 1
		}
		if op.Kind == operation.Show {
			if len(result.Leases) == 0 {
				logWarn("%s %s: no matching pool members", op.Kind, op.OriginalText)
			}
			for _, l := range result.Leases {
				logDebug("lease %s", l.Address)
				fmt.Println(operation.FormatLease(l, now))
			}
			continue
		}
		fmt.Println(result.CountLine)
	}
	return 0
}

type opSpec struct {
	kind      operation.Kind
	rangeText string
	prefix    int
}

type parsedArgs struct {
	server    string
	pool      []byte
	rangeID   []byte
	cfgPath   string
	verbosity int
	opSpecs   []opSpec
}

var errUsageRequested = poolerr.Error("usage requested")
var errNotImplemented = poolerr.Error("not yet implemented")

// parseArgs walks args by hand rather than through flag.FlagSet: -p mutates
// the most recently appended operation, and -a/-d/-r/-s are repeatable and
// order-sensitive, none of which flag.FlagSet can express.
func parseArgs(args []string) (parsedArgs, error) {
	var p parsedArgs
	var positional []string

	i := 0
	for i < len(args) {
		a := args[i]
		switch a {
		case "-h", "--help":
			return p, errUsageRequested
		case "-x":
			p.verbosity++
			i++
		case "-f":
			v, err := flagValue(args, i, "-f")
			if err != nil {
				return p, err
			}
			p.cfgPath = v
			i += 2
		case "-a", "-d", "-r", "-s":
			v, err := flagValue(args, i, a)
			if err != nil {
				return p, err
			}
			p.opSpecs = append(p.opSpecs, opSpec{kind: kindFor(a), rangeText: v})
			i += 2
		case "-p":
			v, err := flagValue(args, i, "-p")
			if err != nil {
				return p, err
			}
			if len(p.opSpecs) == 0 {
				return p, fmt.Errorf("%w: -p given before any operation was appended", poolerr.ErrUsage)
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return p, fmt.Errorf("%w: -p %s: %v", poolerr.ErrUsage, v, err)
			}
			p.opSpecs[len(p.opSpecs)-1].prefix = n
			i += 2
		case "-i", "-I", "-S", "-o":
			return p, errNotImplemented
		default:
			if len(a) > 1 && a[0] == '-' {
				return p, fmt.Errorf("%w: unrecognized option %q", poolerr.ErrUsage, a)
			}
			positional = append(positional, a)
			i++
		}
	}

	if len(positional) < 2 || len(positional) > 3 {
		return p, fmt.Errorf("%w: expected <server[:port]> <pool> [<range>]", poolerr.ErrUsage)
	}
	p.server = positional[0]
	p.pool = []byte(positional[1])
	if len(positional) == 3 {
		p.rangeID = []byte(positional[2])
	}
	return p, nil
}

func flagValue(args []string, i int, name string) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("%w: %s requires an argument", poolerr.ErrUsage, name)
	}
	return args[i+1], nil
}

func kindFor(flag string) operation.Kind {
	switch flag {
	case "-a":
		return operation.Add
	case "-d":
		return operation.Remove
	case "-r":
		return operation.Release
	default:
		return operation.Show
	}
}

func printUsage(w *os.File) {
	fmt.Fprintf(w, `ippoolctl version %s - Redis-backed IP address lease pool admin tool

Usage:
  ippoolctl [options] <server[:port]> <pool> [<range>]

Options (repeatable and order-sensitive):
  -a <prefix>     append an ADD operation over <prefix>
  -d <prefix>     append a REMOVE operation over <prefix>
  -r <prefix>     append a RELEASE operation over <prefix>
  -s <prefix>     append a SHOW operation over <prefix>
  -p <N>          set the allocation prefix length on the last-appended operation
  -f <file>       load a configuration file
  -x              increase verbosity (repeatable)
  -h              print this usage and exit 0
  -i, -I, -S, -o  reserved (ISC lease import/export) - not yet implemented

<prefix> syntax: A, A/N, or A-B, where A and B are IPv4 or IPv6 literals.

Examples:
  ippoolctl -a 10.0.0.0/24 redis.example.com:6379 office
  ippoolctl -s 10.0.0.5 redis.example.com:6379 office
`, version)
}
