// Package console implements the unit's serial configuration console: a
// byte at a time command line parser and the dispatcher behind it.
package console

import (
	"fmt"
	"io"
)

// Input bounds. Exceeding one is an error, never a truncation.
const (
	MaxCommandLength = 32
	MaxArgCount      = 2
	MaxArgLength     = 64
)

type parseState int

const (
	stateIdle parseState = iota
	stateCommandName
	stateExpectingArg
	stateArg
	stateQuotedArg
	stateClosedQuotedArg
	stateDiscard
)

// Line is one complete parsed command line.
type Line struct {
	Name string
	Args []string
}

// Parser consumes command input one byte at a time, with no lookahead and
// bounded buffers. A diagnostic is written to out the moment a rule is
// violated; the rest of the offending line is then discarded silently and
// parsing resumes on the next line.
type Parser struct {
	out io.Writer

	state  parseState
	name   []byte
	args   [][]byte
	escape bool
}

func NewParser(out io.Writer) *Parser {
	parser := &Parser{out: out}
	parser.reset()
	return parser
}

func (p *Parser) reset() {
	p.state = stateIdle
	p.name = p.name[:0]
	p.args = nil
	p.escape = false
}

// Feed consumes one byte and returns a complete Line when that byte
// finished a well formed command, nil otherwise.
func (p *Parser) Feed(c byte) *Line {
	switch p.state {
	case stateIdle:
		p.feedIdle(c)
	case stateCommandName:
		return p.feedCommandName(c)
	case stateExpectingArg:
		return p.feedExpectingArg(c)
	case stateArg:
		return p.feedArg(c)
	case stateQuotedArg:
		p.feedQuotedArg(c)
	case stateClosedQuotedArg:
		return p.feedClosedQuotedArg(c)
	case stateDiscard:
		if isEndOfLine(c) {
			p.reset()
		}
	}

	return nil
}

func (p *Parser) feedIdle(c byte) {
	switch {
	case isLetter(c):
		p.name = append(p.name, c)
		p.state = stateCommandName
	case isEndOfLine(c):
		// empty line, stay idle
	default:
		p.fail("Invalid character to start command.")
	}
}

func (p *Parser) feedCommandName(c byte) *Line {
	switch {
	case isEndOfLine(c):
		return p.complete()
	case isBlank(c):
		p.state = stateExpectingArg
	case isNameChar(c):
		if len(p.name) >= MaxCommandLength {
			p.fail("Command name too long.")
			return nil
		}
		p.name = append(p.name, c)
	default:
		p.fail("Invalid character in command name.")
	}

	return nil
}

func (p *Parser) feedExpectingArg(c byte) *Line {
	switch {
	case isEndOfLine(c):
		// Trailing blank after a bare command name still dispatches; end
		// of line with an argument already open is a missing argument.
		if len(p.args) == 0 {
			return p.complete()
		}
		p.failEndOfLine("Malformed command.")
	case isBlank(c):
		p.fail("Too much spacing before command argument.")
	case c == '"':
		if p.openArg() {
			p.state = stateQuotedArg
		}
	default:
		if p.openArg() {
			p.args[len(p.args)-1] = append(p.args[len(p.args)-1], c)
			p.state = stateArg
		}
	}

	return nil
}

func (p *Parser) feedArg(c byte) *Line {
	switch {
	case isEndOfLine(c):
		return p.complete()
	case isBlank(c):
		p.state = stateExpectingArg
	default:
		p.appendArg(c)
	}

	return nil
}

func (p *Parser) feedQuotedArg(c byte) {
	if p.escape {
		p.escape = false
		p.appendArg(c)
		return
	}

	switch c {
	case '\\':
		p.escape = true
	case '"':
		p.state = stateClosedQuotedArg
	default:
		// end of line bytes are argument content inside quotes
		p.appendArg(c)
	}
}

func (p *Parser) feedClosedQuotedArg(c byte) *Line {
	switch {
	case isEndOfLine(c):
		return p.complete()
	case isBlank(c):
		p.state = stateExpectingArg
	default:
		p.fail("Malformed argument in command.")
	}

	return nil
}

func (p *Parser) openArg() bool {
	if len(p.args) >= MaxArgCount {
		p.fail("Too many arguments for a command.")
		return false
	}
	p.args = append(p.args, make([]byte, 0, MaxArgLength))
	return true
}

func (p *Parser) appendArg(c byte) {
	arg := p.args[len(p.args)-1]
	if len(arg) >= MaxArgLength {
		p.fail("Command argument is too long.")
		return
	}
	p.args[len(p.args)-1] = append(arg, c)
}

func (p *Parser) fail(msg string) {
	fmt.Fprintf(p.out, "\nError: %s\n", msg)
	p.state = stateDiscard
}

// failEndOfLine reports an error on a byte that also ends the line, so
// there is nothing left to discard.
func (p *Parser) failEndOfLine(msg string) {
	fmt.Fprintf(p.out, "\nError: %s\n", msg)
	p.reset()
}

func (p *Parser) complete() *Line {
	line := &Line{Name: string(p.name)}
	for _, arg := range p.args {
		line.Args = append(line.Args, string(arg))
	}
	p.reset()
	return line
}

func isEndOfLine(c byte) bool {
	return c == '\r' || c == '\n'
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}
