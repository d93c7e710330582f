package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// GoParser splits Go source into declaration units with the standard
// library parser.
type GoParser struct{}

func NewGoParser() *GoParser {
	return &GoParser{}
}

func (p *GoParser) Language() string {
	return "go"
}

// Parse returns one unit per top-level declaration, plus a unit for the
// package clause so the package doc comment stays searchable.
func (p *GoParser) Parse(content string) ([]CodeUnit, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var units []CodeUnit

	pkgStart := f.Package
	if f.Doc != nil {
		pkgStart = f.Doc.Pos()
	}
	units = append(units, CodeUnit{
		Kind:        "package",
		Name:        f.Name.Name,
		StartOffset: fset.Position(pkgStart).Offset,
		EndOffset:   fset.Position(f.Name.End()).Offset,
	})

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			units = append(units, unitFor(fset, d, d.Doc, funcKind(d), d.Name.Name))
		case *ast.GenDecl:
			units = append(units, unitFor(fset, d, d.Doc, genKind(d), genName(d)))
		}
	}
	return units, nil
}

func unitFor(fset *token.FileSet, decl ast.Decl, doc *ast.CommentGroup, kind, name string) CodeUnit {
	start := decl.Pos()
	if doc != nil {
		start = doc.Pos()
	}
	return CodeUnit{
		Kind:        kind,
		Name:        name,
		StartOffset: fset.Position(start).Offset,
		EndOffset:   fset.Position(decl.End()).Offset,
	}
}

func funcKind(d *ast.FuncDecl) string {
	if d.Recv != nil {
		return "method"
	}
	return "func"
}

func genKind(d *ast.GenDecl) string {
	switch d.Tok {
	case token.IMPORT:
		return "import"
	case token.TYPE:
		return "type"
	case token.CONST:
		return "const"
	case token.VAR:
		return "var"
	}
	return d.Tok.String()
}

// genName returns the first declared name of a grouped declaration,
// which is enough to label the unit.
func genName(d *ast.GenDecl) string {
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			return s.Name.Name
		case *ast.ValueSpec:
			if len(s.Names) > 0 {
				return s.Names[0].Name
			}
		}
	}
	return ""
}
