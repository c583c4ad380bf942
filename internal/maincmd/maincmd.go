package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/corvid-lang/corvid/lang/machine"
)

const binName = "corvid"

const (
	minMemoryMB     = 1
	defaultMemoryMB = 8
)

var (
	shortUsage = fmt.Sprintf(`
usage: %s [-m|--memory MB] <script>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [-m|--memory MB] <script>
       %[1]s -h|--help
       %[1]s -v|--version

Interpreter for the %[1]s programming language.

Valid flag options are:
       -m --memory MB            Total heap budget in megabytes
                                  (minimum %d, default %d). May also be
                                  set with the CORVID_MEMORY env var.
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName, minMemoryMB, defaultMemoryMB)
)

// Cmd is the corvid CLI: a mainer.Parser target struct whose exported
// bool/int fields carry `flag:` tags, plus the positional script path
// captured via SetArgs.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Memory  int  `flag:"m,memory"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return fmt.Errorf("no script specified")
	}
	if len(c.args) > 1 {
		return fmt.Errorf("too many arguments: %v", c.args[1:])
	}
	if c.Memory != 0 && c.Memory < minMemoryMB {
		return fmt.Errorf("--memory must be at least %d", minMemoryMB)
	}
	return nil
}

// Main is the mainer.Cmd entry point: parse flags, then either print
// help/version or run the script to completion, rendering a fatal error
// to stderr with a non-zero exit.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   true,
		EnvPrefix: "CORVID_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	mb := c.Memory
	if mb == 0 {
		mb = defaultMemoryMB
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, c.args[0], int64(mb)*1024*1024); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio, path string, limitBytes int64) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := machine.Compile(path, src)
	if err != nil {
		return err
	}
	in := machine.New(limitBytes, stdio.Stdout)
	return in.Run(ctx, prog)
}
