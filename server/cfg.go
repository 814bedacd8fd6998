package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zucenko/crosschess/model"
)

var ErrUnknownVariant = errors.New("unknown variant")

const DefaultTimeout = 200 * time.Millisecond

type Config struct {
	// Variant is VariantCross or VariantClassic.
	Variant string
	// Position is a board diagram file replacing the cross starting position.
	Position string
	// FEN replaces the classic starting position.
	FEN string
	// Timeout bounds every hand-off between HTTP handlers and game loops.
	Timeout time.Duration
	// Bots is the number of seats, counted from the end of the rotation,
	// the server plays with random moves.
	Bots int
}

func (c Config) Validate() error {
	switch c.Variant {
	case VariantCross:
		if c.FEN != "" {
			return fmt.Errorf("fen only applies to %s", VariantClassic)
		}
	case VariantClassic:
		if c.Position != "" {
			return fmt.Errorf("position file only applies to %s", VariantCross)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownVariant, c.Variant)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	if c.Bots < 0 {
		return fmt.Errorf("negative bots %d", c.Bots)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// NewRules builds the rules of a fresh game.
func (c Config) NewRules() (Rules, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rules, err := c.newRules()
	if err != nil {
		return nil, err
	}
	if seats := len(rules.Colors()); c.Bots >= seats {
		return nil, fmt.Errorf("%d bots leave no seat for a player out of %d", c.Bots, seats)
	}
	return rules, nil
}

func (c Config) newRules() (Rules, error) {
	if c.Variant == VariantClassic {
		return newClassicRules(c.FEN)
	}
	if c.Position == "" {
		board, err := model.NewBoard(model.CrossLayout())
		if err != nil {
			return nil, err
		}
		return newCrossRules(board), nil
	}
	board, err := loadPosition(c.Position)
	if err != nil {
		return nil, err
	}
	return newCrossRules(board), nil
}

func loadPosition(path string) (*model.Board, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	s, err := model.ReadState(file)
	if err != nil {
		return nil, fmt.Errorf("position %s: %w", path, err)
	}
	log.Debugf("loaded position %s\n%s", path, s.Diagram())
	return model.NewBoardFromState(s)
}
