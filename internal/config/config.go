// Package config turns CUE board profiles and command-line overrides into a
// jtag.Config.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/jtag"
)

//go:embed boards.cue
var builtinBoards []byte

// ModelFile is where the running board names itself.
const ModelFile = "/sys/firmware/devicetree/base/model"

var (
	// ErrBoardNotFound is returned for a board name no profile defines.
	ErrBoardNotFound = errors.New("config: board not found")
	// ErrInvalid is returned for a profile or command line that cannot be
	// turned into a link configuration.
	ErrInvalid = errors.New("config: invalid configuration")
)

// USB identifies a probe in a profile.
type USB struct {
	Vendor  int    `json:"vendor"`
	Product int    `json:"product"`
	Serial  string `json:"serial"`
}

// Board is one profile.
type Board struct {
	Model    string          `json:"model"`
	Backend  string          `json:"backend"`
	Device   string          `json:"device"`
	Provider string          `json:"provider"`
	Pins     *jtag.PinMap    `json:"pins"`
	Layout   *bitbang.Layout `json:"layout"`
	USB      *USB            `json:"usb"`
	WriteDup int             `json:"wrDup"`
	ReadDup  int             `json:"rdDup"`
	ClockHz  int             `json:"clockHz"`
}

type root struct {
	value cue.Value
	path  string
}

// Profiles holds the built-in boards and any user files. User files are
// searched first, so a user board replaces a built-in board of the same
// name as a whole.
type Profiles struct {
	roots []root
}

// Load compiles the built-in profiles and each file in paths against the
// closed schema.
func Load(paths ...string) (*Profiles, error) {
	ctx := cuecontext.New()
	s := ctx.CompileString("close({" + schema + "})")
	if err := s.Err(); err != nil {
		return nil, err
	}

	p := new(Profiles)
	add := func(src []byte, name string) error {
		v := ctx.CompileBytes(src, cue.Filename(name))
		if err := v.Err(); err != nil {
			return err
		}
		v = s.Unify(v)
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		p.roots = append(p.roots, root{value: v, path: name})
		return nil
	}

	// The last file is searched first.
	for i := len(paths) - 1; i >= 0; i-- {
		content, err := os.ReadFile(paths[i])
		if err != nil {
			return nil, err
		}
		if err := add(content, paths[i]); err != nil {
			return nil, err
		}
	}
	if err := add(builtinBoards, "boards.cue"); err != nil {
		return nil, err
	}
	return p, nil
}

// assignFirst decodes the first root defining path into target.
func (p *Profiles) assignFirst(path cue.Path, target any) (bool, error) {
	for _, r := range p.roots {
		v := r.value.LookupPath(path)
		if !v.Exists() {
			continue
		}
		if err := v.Decode(target); err != nil {
			return true, fmt.Errorf("%s: %s: %w", r.path, path, err)
		}
		return true, nil
	}
	return false, nil
}

// Board returns the profile called name.
func (p *Profiles) Board(name string) (Board, error) {
	var b Board
	ok, err := p.assignFirst(cue.MakePath(cue.Str("boards"), cue.Str(name)), &b)
	if err != nil {
		return Board{}, err
	}
	if !ok {
		return Board{}, fmt.Errorf("%w: %q", ErrBoardNotFound, name)
	}
	return b, nil
}

// Default returns the name of the fallback board.
func (p *Profiles) Default() string {
	var name string
	if ok, err := p.assignFirst(cue.ParsePath("default"), &name); !ok || err != nil {
		return ""
	}
	return name
}

// Names lists every board name, sorted.
func (p *Profiles) Names() []string {
	seen := make(map[string]bool)
	for _, r := range p.roots {
		it, err := r.value.LookupPath(cue.ParsePath("boards")).Fields()
		if err != nil {
			continue
		}
		for it.Next() {
			seen[it.Selector().Unquoted()] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Detect picks the board whose model string is contained in the model
// read from modelFile. An unknown or unreadable model falls back to the
// default board with a warning.
func (p *Profiles) Detect(modelFile string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	content, err := os.ReadFile(modelFile)
	if err != nil {
		logger.Warn("board model unavailable, using default board", "file", modelFile, "error", err)
		return p.fallback()
	}
	model := strings.TrimRight(string(content), "\x00\n")

	for _, name := range p.Names() {
		b, err := p.Board(name)
		if err != nil {
			return "", err
		}
		if b.Model != "" && strings.Contains(model, b.Model) {
			logger.Debug("board detected", "model", model, "board", name)
			return name, nil
		}
	}
	logger.Warn("WARNING: Undefined Board Type!", "model", model)
	return p.fallback()
}

func (p *Profiles) fallback() (string, error) {
	name := p.Default()
	if name == "" {
		return "", errors.New("config: no default board")
	}
	return name, nil
}
