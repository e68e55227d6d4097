// Package goast finds HTTP routes in Go source by walking its syntax tree.
// It understands the router APIs of net/http, gin, echo, chi, gorilla/mux
// and fiber.
package goast

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"
)

// fileIndex holds the file-level declarations routes and handlers refer to.
type fileIndex struct {
	consts  map[string]string
	funcs   map[string]*ast.FuncDecl
	methods map[string]*ast.FuncDecl
	structs map[string]*ast.StructType
}

func indexFile(f *ast.File) *fileIndex {
	idx := &fileIndex{
		consts:  make(map[string]string),
		funcs:   make(map[string]*ast.FuncDecl),
		methods: make(map[string]*ast.FuncDecl),
		structs: make(map[string]*ast.StructType),
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				idx.funcs[d.Name.Name] = d
			} else {
				idx.methods[d.Name.Name] = d
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					if d.Tok != token.CONST {
						continue
					}
					for i, name := range s.Names {
						if i < len(s.Values) {
							if v, ok := stringLit(s.Values[i]); ok {
								idx.consts[name.Name] = v
							}
						}
					}
				case *ast.TypeSpec:
					if st, ok := s.Type.(*ast.StructType); ok {
						idx.structs[s.Name.Name] = st
					}
				}
			}
		}
	}
	return idx
}

func stringLit(e ast.Expr) (string, bool) {
	bl, ok := e.(*ast.BasicLit)
	if !ok || bl.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(bl.Value)
	return s, err == nil
}

// stringValue evaluates string literals, file-level constants and their
// concatenations.
func (idx *fileIndex) stringValue(e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.BasicLit:
		return stringLit(v)
	case *ast.Ident:
		s, ok := idx.consts[v.Name]
		return s, ok
	case *ast.ParenExpr:
		return idx.stringValue(v.X)
	case *ast.BinaryExpr:
		if v.Op != token.ADD {
			return "", false
		}
		l, ok := idx.stringValue(v.X)
		if !ok {
			return "", false
		}
		r, ok := idx.stringValue(v.Y)
		return l + r, ok
	}
	return "", false
}

// structOf returns the file-local struct a type expression names.
func (idx *fileIndex) structOf(e ast.Expr) (*ast.StructType, bool) {
	switch t := e.(type) {
	case *ast.StarExpr:
		return idx.structOf(t.X)
	case *ast.Ident:
		st, ok := idx.structs[t.Name]
		return st, ok
	case *ast.StructType:
		return t, true
	}
	return nil, false
}

func exprString(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return types.ExprString(e)
}

func joinPath(prefix, p string) string {
	if prefix == "" {
		if p == "" {
			return "/"
		}
		return p
	}
	if p == "" || p == "/" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}

// firstSentence returns the first sentence of a doc comment.
func firstSentence(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if i := strings.Index(text, ". "); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSuffix(text, ".")
}
