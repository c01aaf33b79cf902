// Package bench runs a suite of positions with and without selective
// pruning and reports how often the two searches agree.
package bench

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shogiban/kairos/shogi"
)

var ErrEmptySuite = errors.New("suite has no positions")

// Case is one benchmark position. Best is optional; when set, a search
// solves the case by playing it.
type Case struct {
	Name  string `yaml:"name"`
	SFEN  string `yaml:"sfen"`
	Best  string `yaml:"best,omitempty"`
	Depth int    `yaml:"depth,omitempty"`
}

type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"positions"`
}

func LoadSuite(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSuite(f)
}

// ParseSuite decodes a YAML suite and checks that every position parses.
func ParseSuite(r io.Reader) (*Suite, error) {
	s := &Suite{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySuite
		}
		return nil, err
	}
	if len(s.Cases) == 0 {
		return nil, ErrEmptySuite
	}
	for i, c := range s.Cases {
		pos, err := shogi.ParseSFEN(c.SFEN)
		if err != nil {
			return nil, fmt.Errorf("position %d (%s): %w", i, c.Name, err)
		}
		if c.Best != "" {
			if _, err := pos.ParseMove(c.Best); err != nil {
				return nil, fmt.Errorf("position %d (%s): best move: %w", i, c.Name, err)
			}
		}
		if c.Depth < 0 {
			return nil, fmt.Errorf("position %d (%s): negative depth", i, c.Name)
		}
	}
	return s, nil
}
