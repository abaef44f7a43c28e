package sim

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrBadCommand is returned for unknown commands and malformed arguments.
var ErrBadCommand = errors.New("bad command")

// Op is a simulator command.
type Op int

const (
	// NewProcess creates a process: np <proc> <pages>.
	NewProcess Op = iota
	// PrintFreeMap prints the free-frame map: pfm.
	PrintFreeMap
	// PrintPageTable prints one page table: ppt <proc>.
	PrintPageTable
)

func (o Op) String() string {
	switch o {
	case NewProcess:
		return "np"
	case PrintFreeMap:
		return "pfm"
	case PrintPageTable:
		return "ppt"
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Command is one parsed step of a command sequence.
type Command struct {
	Op      Op
	Process int
	Pages   int
}

// Parse turns command-line words into commands. The whole sequence is
// checked before anything runs.
func Parse(args []string) ([]Command, error) {
	var cmds []Command
	for i := 0; i < len(args); i++ {
		word := args[i]
		switch word {
		case "np":
			nums, err := ints(args, i, 2)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, Command{Op: NewProcess, Process: nums[0], Pages: nums[1]})
			i += 2
		case "pfm":
			cmds = append(cmds, Command{Op: PrintFreeMap})
		case "ppt":
			nums, err := ints(args, i, 1)
			if err != nil {
				return nil, err
			}
			cmds = append(cmds, Command{Op: PrintPageTable, Process: nums[0]})
			i++
		default:
			return nil, errors.Wrapf(ErrBadCommand, "unknown command %q at position %d", word, i+1)
		}
	}
	return cmds, nil
}

// ints reads the n integer arguments that follow args[at].
func ints(args []string, at, n int) ([]int, error) {
	if at+n >= len(args) {
		return nil, errors.Wrapf(ErrBadCommand, "%s needs %d argument(s)", args[at], n)
	}
	out := make([]int, n)
	for k := 0; k < n; k++ {
		v, err := strconv.Atoi(args[at+1+k])
		if err != nil {
			return nil, errors.Wrapf(ErrBadCommand, "%s: argument %q is not a number", args[at], args[at+1+k])
		}
		out[k] = v
	}
	return out, nil
}
