package console

import (
	"strings"
	"testing"
)

func feedString(p *Parser, input string) (lines []*Line) {
	for i := 0; i < len(input); i++ {
		line := p.Feed(input[i])
		if line != nil {
			lines = append(lines, line)
		}
	}
	return
}

func assertLine(t testing.TB, line *Line, name string, args ...string) {
	t.Helper()

	if line.Name != name {
		t.Errorf("got name %q want %q", line.Name, name)
	}
	if len(line.Args) != len(args) {
		t.Fatalf("got %d args want %d: %q", len(line.Args), len(args), line.Args)
	}
	for no, arg := range args {
		if line.Args[no] != arg {
			t.Errorf("arg %d: got %q want %q", no, line.Args[no], arg)
		}
	}
}

func TestParserSimpleCommand(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "help\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "help")
	if out.Len() != 0 {
		t.Errorf("no output expected, got %q", out.String())
	}
}

func TestParserCarriageReturnEndsLine(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "wifi-status\r\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "wifi-status")
}

func TestParserBlankLinesIgnored(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "\r\n\n\r")

	if len(lines) != 0 || out.Len() != 0 {
		t.Errorf("blank lines should produce nothing, got %d lines %q", len(lines), out.String())
	}
}

func TestParserPlainArguments(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "wifi-config myssid mypass\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "wifi-config", "myssid", "mypass")
}

func TestParserQuotedArguments(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), `wifi-config "My Network" "secret pass"`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "wifi-config", "My Network", "secret pass")
}

func TestParserMixedQuoting(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), `cmd plain "quoted arg"`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "cmd", "plain", "quoted arg")
}

func TestParserEmptyQuotedArgument(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), `cmd ""`+"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "cmd", "")
}

func TestParserEscapes(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`cmd "a\"b"` + "\n", `a"b`},
		{`cmd "a\\b"` + "\n", `a\b`},
		{`cmd "a\xb"` + "\n", "axb"},
	}

	for _, tc := range cases {
		out := &strings.Builder{}
		lines := feedString(NewParser(out), tc.input)
		if len(lines) != 1 {
			t.Fatalf("input %q: got %d lines want 1", tc.input, len(lines))
		}
		assertLine(t, lines[0], "cmd", tc.want)
	}
}

func TestParserQuotedEndOfLineIsContent(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "cmd \"a\nb\"\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "cmd", "a\nb")
}

func TestParserTrailingBlankStillDispatches(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "help \n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "help")
	if out.Len() != 0 {
		t.Errorf("no output expected, got %q", out.String())
	}
}

func TestParserTrailingBlankAfterArgument(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "wifi-config ssid \n")

	if len(lines) != 0 {
		t.Fatalf("dangling argument should not dispatch, got %d lines", len(lines))
	}
	if out.String() != "\nError: Malformed command.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserDoubleBlank(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "cmd  arg\n")

	if len(lines) != 0 {
		t.Fatal("double spacing should not dispatch")
	}
	if out.String() != "\nError: Too much spacing before command argument.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserTooManyArguments(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "wifi-config a b c\n")

	if len(lines) != 0 {
		t.Fatal("third argument should abort the line")
	}
	if out.String() != "\nError: Too many arguments for a command.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserInvalidStartCharacter(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "1help\n")

	if len(lines) != 0 {
		t.Fatal("digit cannot start a command")
	}
	if out.String() != "\nError: Invalid character to start command.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserLeadingBlankRejected(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), " help\n")

	if len(lines) != 0 {
		t.Fatal("leading blank cannot start a command")
	}
	if out.String() != "\nError: Invalid character to start command.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserInvalidNameCharacter(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), "he$lp\n")

	if len(lines) != 0 {
		t.Fatal("invalid name character should abort the line")
	}
	if out.String() != "\nError: Invalid character in command name.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserNameLengthBound(t *testing.T) {
	out := &strings.Builder{}
	name := strings.Repeat("a", MaxCommandLength)
	lines := feedString(NewParser(out), name+"\n")
	if len(lines) != 1 {
		t.Fatalf("%d byte name should parse", MaxCommandLength)
	}
	assertLine(t, lines[0], name)

	out.Reset()
	lines = feedString(NewParser(out), strings.Repeat("a", MaxCommandLength+1)+"\n")
	if len(lines) != 0 {
		t.Fatal("over-long name should abort the line")
	}
	if out.String() != "\nError: Command name too long.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserArgumentLengthBound(t *testing.T) {
	out := &strings.Builder{}
	arg := strings.Repeat("x", MaxArgLength)
	lines := feedString(NewParser(out), "cmd "+arg+"\n")
	if len(lines) != 1 {
		t.Fatalf("%d byte argument should parse", MaxArgLength)
	}
	assertLine(t, lines[0], "cmd", arg)

	out.Reset()
	lines = feedString(NewParser(out), "cmd "+strings.Repeat("x", MaxArgLength+1)+"\n")
	if len(lines) != 0 {
		t.Fatal("over-long argument should abort the line")
	}
	if out.String() != "\nError: Command argument is too long.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserTextAfterClosingQuote(t *testing.T) {
	out := &strings.Builder{}
	lines := feedString(NewParser(out), `cmd "arg"x`+"\n")

	if len(lines) != 0 {
		t.Fatal("text glued to a closing quote should abort the line")
	}
	if out.String() != "\nError: Malformed argument in command.\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestParserRecoversAfterError(t *testing.T) {
	out := &strings.Builder{}
	parser := NewParser(out)

	lines := feedString(parser, "1bad line with junk\nhelp\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "help")

	// exactly one diagnostic, the rest of the bad line was discarded
	if strings.Count(out.String(), "Error:") != 1 {
		t.Errorf("got %q", out.String())
	}
}

func TestParserErrorInsideQuotedArgDiscardsRest(t *testing.T) {
	out := &strings.Builder{}
	parser := NewParser(out)

	long := strings.Repeat("y", MaxArgLength+10)
	lines := feedString(parser, `cmd "`+long+`"`+"\nwifi-status\n")

	if len(lines) != 1 {
		t.Fatalf("got %d lines want 1", len(lines))
	}
	assertLine(t, lines[0], "wifi-status")
	if strings.Count(out.String(), "Error: Command argument is too long.") != 1 {
		t.Errorf("got %q", out.String())
	}
}
