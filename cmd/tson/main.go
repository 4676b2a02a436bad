// tson reads, checks, formats and converts TSON documents.
//
// Usage:
//
//	tson fmt [-w] [files...]
//	tson compact [files...]
//	tson check [files...]
//	tson from-json [files...]
//	tson from-yaml [files...]
//	tson to-json [--indent n] [files...]
//	tson to-yaml [--indent n] [files...]
//
// With no files, input is read from stdin.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/ConradIrwin/tson-go"
	"github.com/ConradIrwin/tson-go/bridge"
)

var errFailed = errors.New("one or more files failed")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

const usage = `usage: tson <command> [flags] [files...]

commands:
  fmt        print documents indented
  compact    print documents on one line
  check      report syntax errors
  from-json  convert JSON (or JSONC) to TSON
  from-yaml  convert YAML to TSON
  to-json    convert TSON to JSON
  to-yaml    convert TSON to YAML
`

type command struct {
	name    string
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	write   bool
	indent  int
	options bridge.Options
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}
	name, args := args[0], args[1:]
	switch name {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	case "fmt", "compact", "check", "from-json", "from-yaml", "to-json", "to-yaml":
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}

	c := &command{name: name, stdout: stdout, stderr: stderr}
	flags := pflag.NewFlagSet("tson "+name, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	verbose := flags.BoolP("verbose", "v", false, "log each file as it is processed")
	noColor := flags.Bool("no-color", false, "never highlight diagnostics")
	if name == "fmt" {
		flags.BoolVarP(&c.write, "write", "w", false, "write the result back to each file")
	}
	if name == "to-json" || name == "to-yaml" {
		flags.IntVar(&c.indent, "indent", 0, "spaces per nesting level")
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	c.options = bridge.Options{Indent: c.indent}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if *noColor {
		color.NoColor = true
	}

	files := flags.Args()
	if len(files) == 0 {
		if c.write {
			return fmt.Errorf("cannot use --write with stdin")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		if !c.process("<stdin>", data) {
			return errFailed
		}
		return nil
	}

	ok := true
	for _, file := range files {
		c.logger.Debug("processing", "command", name, "file", file)
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			ok = false
			continue
		}
		if !c.process(file, data) {
			ok = false
		}
	}
	if !ok {
		return errFailed
	}
	return nil
}

// process converts one input and writes the result. Failures are reported
// on stderr.
func (c *command) process(file string, data []byte) bool {
	out, err := c.convert(data)
	if err != nil {
		c.report(file, err)
		return false
	}
	if out == nil {
		return true
	}
	if c.write {
		info, err := os.Stat(file)
		if err != nil {
			c.report(file, err)
			return false
		}
		if err := os.WriteFile(file, out, info.Mode().Perm()); err != nil {
			c.report(file, err)
			return false
		}
		c.logger.Debug("rewrote", "file", file, "bytes", len(out))
		return true
	}
	if _, err := c.stdout.Write(out); err != nil {
		c.report(file, err)
		return false
	}
	return true
}

func (c *command) convert(data []byte) ([]byte, error) {
	switch c.name {
	case "from-json", "from-yaml":
		from := bridge.FromJSON
		if c.name == "from-yaml" {
			from = bridge.FromYAML
		}
		v, err := from(data)
		if err != nil {
			return nil, err
		}
		if k := v.Kind(); k != tson.KindObject && k != tson.KindArray {
			return nil, fmt.Errorf("document must be an object or an array, not %s", k.Tag())
		}
		return []byte(tson.Format(v.String()) + "\n"), nil
	}

	v, err := tson.Parse(string(data))
	if err != nil {
		return nil, err
	}
	switch c.name {
	case "check":
		return nil, nil
	case "fmt":
		return []byte(tson.Format(v.String()) + "\n"), nil
	case "compact":
		return []byte(v.String() + "\n"), nil
	case "to-json":
		out, err := bridge.ToJSON(v, c.options)
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "to-yaml":
		return bridge.ToYAML(v, c.options)
	}
	return nil, fmt.Errorf("unknown command %q", c.name)
}

var (
	locationColor = color.New(color.Bold)
	errorColor    = color.New(color.FgRed)
)

func (c *command) report(file string, err error) {
	location := file
	var serr *tson.SyntaxError
	if errors.As(err, &serr) {
		location = fmt.Sprintf("%s:%d:%d", file, serr.Line, serr.Column)
		err = errors.New(serr.Msg)
	}
	fmt.Fprintf(c.stderr, "%s: %s\n", locationColor.Sprint(location), errorColor.Sprint(err))
}
