// Package repl implements the interactive HulaScript shell: read a
// (possibly multi-line) statement, compile it against the running
// instance, print any warnings it produced, then run it and
// print the result. Grounded on the teacher's repl.go read-eval loop
// shape (one persistent VM, Scan a line, compile, run), replacing its
// fresh-chunk-per-line reset with the spec's REPL-persistence model: one
// Instance accumulates chunk/constants/functions/globals across
// statements, and a completeness oracle -- tracking open brackets and
// pending block keywords -- joins lines until a statement is whole
// before handing it to the compiler at all.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"hulascript/internal/instance"
	"hulascript/internal/lexer"
)

// blockOpeners are the token types that open a block requiring a matching
// `end`, mirrored against the compiler's own statement()/blockUntil
// terminator sets in internal/compiler/stmt.go. `while` and `for` are not
// listed: their block opens at the `do` that ends their header, and a
// do-while's `while ... end` closes the block its `do` opened, so each
// loop form counts one opener for its one `end`.
var blockOpeners = map[lexer.TokenType]bool{
	lexer.TokIf:       true,
	lexer.TokFunction:  true,
	lexer.TokClass:    true,
	lexer.TokDo:       true,
}

// oracle tracks whether source typed so far could possibly be a complete
// top-level statement: unmatched brackets or an unclosed block keyword
// both mean "keep reading."
type oracle struct {
	parens, braces, brackets int
	pendingBlocks            int
}

func (o *oracle) feed(line string) {
	scanner := lexer.NewScanner(line, "<repl>")
	for {
		tok, err := scanner.Next()
		if err != nil || tok.Type == lexer.TokEOF {
			return
		}
		switch tok.Type {
		case lexer.TokLParen:
			o.parens++
		case lexer.TokRParen:
			o.parens--
		case lexer.TokLBrace:
			o.braces++
		case lexer.TokRBrace:
			o.braces--
		case lexer.TokLBracket:
			o.brackets++
		case lexer.TokRBracket:
			o.brackets--
		case lexer.TokEnd:
			o.pendingBlocks--
		default:
			if blockOpeners[tok.Type] {
				o.pendingBlocks++
			}
		}
	}
}

func (o *oracle) complete() bool {
	return o.parens <= 0 && o.braces <= 0 && o.brackets <= 0 && o.pendingBlocks <= 0
}

// Run drives the interactive shell against in until EOF or an `exit`
// line. Warnings a statement produces are printed and the statement is
// then run; there is no prompt to decline it.
func Run(in *instance.Instance, stdin io.Reader, stdout io.Writer) {
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}

	scanner := bufio.NewScanner(stdin)
	var pending strings.Builder
	ora := &oracle{}

	prompt := func() {
		if !interactive {
			return
		}
		if pending.Len() == 0 {
			fmt.Fprint(stdout, "hula> ")
		} else {
			fmt.Fprint(stdout, "...   ")
		}
	}

	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		if pending.Len() == 0 && strings.TrimSpace(line) == "exit" {
			return
		}
		pending.WriteString(line)
		pending.WriteString("\n")
		ora.feed(line)

		if !ora.complete() {
			prompt()
			continue
		}

		source := pending.String()
		pending.Reset()
		ora = &oracle{}

		result, err := in.Run(source, "<repl>", false)
		if err != nil {
			fmt.Fprintln(stdout, "error:", err)
			prompt()
			continue
		}
		if len(result.Warnings) > 0 {
			for _, w := range result.Warnings {
				fmt.Fprintln(stdout, "warning:", w.Message)
			}
			result, err = in.RunLoaded()
			if err != nil {
				fmt.Fprintln(stdout, "error:", err)
				prompt()
				continue
			}
		}
		if result.HasValue {
			fmt.Fprintln(stdout, in.GetValuePrintString(result.Value))
		}
		in.Collect()
		prompt()
	}
}
