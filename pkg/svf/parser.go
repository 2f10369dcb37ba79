package svf

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
)

// Parser turns statement text into a Statement.
type Parser struct {
	parser *participle.Parser[Statement]
}

// NewParser creates a new SVF statement parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[Statement](
		participle.Lexer(SVFLexer),
		participle.Elide("Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: parser}, nil
}

// ParseStatement parses the text of a single statement, including its
// terminating semicolon. file names the source in positions.
func (p *Parser) ParseStatement(file, text string) (*Statement, error) {
	stmt, err := p.parser.ParseString(file, text)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return stmt, nil
}
