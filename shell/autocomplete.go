package shell

import (
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/shogiban/kairos/shogi"
)

// ShellCompleter provides context-aware autocomplete for shell commands
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string // Available options for this command (e.g., "-depth")
	Args    []string // Possible argument values (for non-option arguments)
}

var commandMetadata = map[string]CommandMetadata{
	"go": {
		Options: []string{"-depth", "-movetime", "-play"},
	},
	"bench": {
		Options: []string{"-depth", "-confidence"},
	},
	"position": {
		Args: []string{"startpos", "sfen"},
	},
	"set": {
		Args: settingNames(),
	},
	"help": {
		Args: []string{"go", "set", "bench", "position"},
	},
}

var commandNames = []string{
	"help", "position", "moves", "undo", "show", "go", "stats", "set",
	"clear", "bench", "exit",
}

var boolValues = []string{"true", "false"}

func settingNames() []string {
	names := lo.Keys(settable)
	sort.Strings(names)
	return names
}

// Do implements the readline.AutoComplete interface.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])

	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string

	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}

		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}

		switch {
		case lastCompleteField == "-play":
			completions = boolValues
		case cmdName == "moves" && c.sc != nil && c.sc.pos != nil:
			// offer the legal moves of the current position
			completions = lo.Map(c.sc.pos.LegalMoves(nil), func(m shogi.Move, _ int) string {
				return m.String()
			})
		}

		if completions == nil {
			if metadata, exists := commandMetadata[cmdName]; exists {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			// Return only the part that needs to be added
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
