package svf

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SVFLexer tokenizes one statement. Comments are removed by the statement
// scanner before the text reaches the lexer.
var SVFLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},

	// Hex vectors may span lines: TDI (0000
	//   FFFF)
	{Name: "HexData", Pattern: `\([0-9A-Fa-f\s]*\)`},

	// 100, 1.0E-3, 1E6
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]*)?([eE][-+]?[0-9]+)?`},

	// Keywords and state names, matched case-insensitively by the grammar.
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},

	{Name: "Semicolon", Pattern: `;`},
})
