package model

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// ReadState parses a board diagram:
//
//	colors red blue yellow green
//	turn red
//	x x x Rr Rn Rb Rk Rq Rb Rn Rr x x x
//
// One line per row. "x" is dead, "." empty, otherwise the upper case color
// initial and the kind letter, with a trailing "*" for a moved piece.
func ReadState(reader io.Reader) (State, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(bufio.ScanLines)
	var s State
	var initials map[byte]Color
	turn := Color("")
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "colors":
			for _, f := range fields[1:] {
				s.Colors = append(s.Colors, Color(f))
			}
			var err error
			if initials, err = colorInitials(s.Colors); err != nil {
				return State{}, fmt.Errorf("line %d: %w", line, err)
			}
		case "turn":
			if len(fields) != 2 {
				return State{}, fmt.Errorf("%w: line %d: turn wants one color", ErrInvalidState, line)
			}
			turn = Color(fields[1])
		default:
			if initials == nil {
				return State{}, fmt.Errorf("%w: line %d: colors must come first", ErrInvalidState, line)
			}
			row := make([]Cell, 0, len(fields))
			for _, token := range fields {
				cell, err := parseToken(token, initials)
				if err != nil {
					return State{}, fmt.Errorf("line %d: %w", line, err)
				}
				row = append(row, cell)
			}
			s.Cells = append(s.Cells, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return State{}, err
	}

	s.Size = len(s.Cells)
	s.Turn = -1
	for i, c := range s.Colors {
		if c == turn {
			s.Turn = i
		}
	}
	if turn == "" && len(s.Colors) > 0 {
		s.Turn = 0
	}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

func colorInitials(colors []Color) (map[byte]Color, error) {
	initials := make(map[byte]Color, len(colors))
	for _, c := range colors {
		if c == "" {
			continue
		}
		i := byte(unicode.ToUpper(rune(c[0])))
		if prev, dup := initials[i]; dup {
			return nil, fmt.Errorf("%w: %q and %q share initial %c", ErrInvalidState, prev, c, i)
		}
		initials[i] = c
	}
	return initials, nil
}

func parseToken(token string, initials map[byte]Color) (Cell, error) {
	switch token {
	case "x":
		return DeadCell(), nil
	case ".":
		return EmptyCell(), nil
	}
	moved := strings.HasSuffix(token, "*")
	token = strings.TrimSuffix(token, "*")
	if len(token) != 2 {
		return Cell{}, fmt.Errorf("%w: bad token %q", ErrInvalidState, token)
	}
	owner, ok := initials[token[0]]
	if !ok {
		return Cell{}, fmt.Errorf("%w: unknown color in %q", ErrInvalidState, token)
	}
	kind, ok := KindFromLetter(token[1])
	if !ok {
		return Cell{}, fmt.Errorf("%w: unknown kind in %q", ErrInvalidState, token)
	}
	return OccupiedCell(Piece{Kind: kind, Owner: owner, Moved: moved}), nil
}

// WriteState writes s in the format read by ReadState.
func WriteState(w io.Writer, s State) error {
	if _, err := colorInitials(s.Colors); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	names := make([]string, len(s.Colors))
	for i, c := range s.Colors {
		names[i] = string(c)
	}
	fmt.Fprintf(bw, "colors %s\n", strings.Join(names, " "))
	fmt.Fprintf(bw, "turn %s\n", s.CurrentTurn())
	for _, row := range s.Cells {
		tokens := make([]string, len(row))
		for i, cell := range row {
			tokens[i] = cellToken(cell)
		}
		fmt.Fprintln(bw, strings.Join(tokens, " "))
	}
	return bw.Flush()
}

func cellToken(c Cell) string {
	switch c.State {
	case Dead:
		return "x"
	case Occupied:
		if c.Piece.Owner == "" {
			return "?"
		}
		t := string([]byte{byte(unicode.ToUpper(rune(c.Piece.Owner[0]))), c.Piece.Kind.Letter()})
		if c.Piece.Moved {
			t += "*"
		}
		return t
	default:
		return "."
	}
}

// Diagram renders s for logs.
func (s State) Diagram() string {
	var sb strings.Builder
	if err := WriteState(&sb, s); err != nil {
		return err.Error()
	}
	return sb.String()
}
