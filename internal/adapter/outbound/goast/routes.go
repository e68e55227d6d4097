package goast

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

var routerConstructors = map[string]bool{
	"gin.Default":      true,
	"gin.New":          true,
	"echo.New":         true,
	"chi.NewRouter":    true,
	"chi.NewMux":       true,
	"mux.NewRouter":    true,
	"http.NewServeMux": true,
	"fiber.New":        true,
}

var routerTypes = map[string]bool{
	"*gin.Engine":      true,
	"*gin.RouterGroup": true,
	"gin.IRouter":      true,
	"gin.IRoutes":      true,
	"*echo.Echo":       true,
	"*echo.Group":      true,
	"chi.Router":       true,
	"*chi.Mux":         true,
	"*mux.Router":      true,
	"*http.ServeMux":   true,
	"fiber.Router":     true,
	"*fiber.App":       true,
}

// httpMethodConsts maps net/http method constants to methods.
var httpMethodConsts = map[string]domain.Method{
	"http.MethodGet":    domain.MethodGet,
	"http.MethodPost":   domain.MethodPost,
	"http.MethodPut":    domain.MethodPut,
	"http.MethodDelete": domain.MethodDelete,
	"http.MethodPatch":  domain.MethodPatch,
}

type route struct {
	method  domain.Method
	path    string
	handler ast.Expr
	pos     token.Pos
}

// scope maps router variables to the path prefix they carry.
type scope map[string]string

func (s scope) child() scope {
	c := make(scope, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

type routeWalker struct {
	idx      *fileIndex
	consumed map[*ast.CallExpr]bool
	routes   []route
}

func findRoutes(f *ast.File, idx *fileIndex) []route {
	w := &routeWalker{idx: idx, consumed: make(map[*ast.CallExpr]bool)}
	global := scope{}
	for _, decl := range f.Decls {
		if gd, ok := decl.(*ast.GenDecl); ok && gd.Tok == token.VAR {
			for _, spec := range gd.Specs {
				w.bindSpec(global, spec.(*ast.ValueSpec))
			}
		}
	}
	for _, decl := range f.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok {
			w.walkFunc(fd.Type, fd.Body, global, "")
		}
	}
	return w.routes
}

// walkFunc visits one function body. Parameters typed as routers are bound
// with paramPrefix.
func (w *routeWalker) walkFunc(ftype *ast.FuncType, body *ast.BlockStmt, parent scope, paramPrefix string) {
	if body == nil {
		return
	}
	sc := parent.child()
	if ftype != nil && ftype.Params != nil {
		for _, field := range ftype.Params.List {
			if !routerTypes[exprString(field.Type)] {
				continue
			}
			for _, name := range field.Names {
				sc[name.Name] = paramPrefix
			}
		}
	}

	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FuncLit:
			w.walkFunc(node.Type, node.Body, sc, "")
			return false
		case *ast.AssignStmt:
			for i, lhs := range node.Lhs {
				id, ok := lhs.(*ast.Ident)
				if !ok || i >= len(node.Rhs) {
					continue
				}
				if prefix, ok := w.routerExpr(sc, node.Rhs[i]); ok {
					sc[id.Name] = prefix
				}
			}
		case *ast.ValueSpec:
			w.bindSpec(sc, node)
		case *ast.CallExpr:
			return w.visitCall(node, sc)
		}
		return true
	})
}

func (w *routeWalker) bindSpec(sc scope, spec *ast.ValueSpec) {
	for i, name := range spec.Names {
		if i < len(spec.Values) {
			if prefix, ok := w.routerExpr(sc, spec.Values[i]); ok {
				sc[name.Name] = prefix
			}
			continue
		}
		if routerTypes[exprString(spec.Type)] {
			sc[name.Name] = ""
		}
	}
}

// routerExpr reports whether e evaluates to a router and the prefix it
// carries.
func (w *routeWalker) routerExpr(sc scope, e ast.Expr) (string, bool) {
	switch v := e.(type) {
	case *ast.Ident:
		p, ok := sc[v.Name]
		return p, ok
	case *ast.ParenExpr:
		return w.routerExpr(sc, v.X)
	case *ast.CallExpr:
		sel, ok := v.Fun.(*ast.SelectorExpr)
		if !ok {
			return "", false
		}
		if routerConstructors[exprString(sel)] {
			return "", true
		}
		switch sel.Sel.Name {
		case "Group", "PathPrefix":
			base, ok := w.routerExpr(sc, sel.X)
			if !ok || len(v.Args) == 0 {
				return "", false
			}
			if p, ok := w.idx.stringValue(v.Args[0]); ok {
				return joinPath(base, p), true
			}
		case "Subrouter", "With":
			return w.routerExpr(sc, sel.X)
		}
	}
	return "", false
}

func (w *routeWalker) visitCall(call *ast.CallExpr, sc scope) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || w.consumed[call] {
		return true
	}
	name := sel.Sel.Name
	args := call.Args

	if name == "Methods" {
		w.methodsChain(call, sel, sc)
		return true
	}

	base, ok := w.routerExpr(sc, sel.X)
	if !ok {
		return true
	}

	if name == "Route" && len(args) == 2 {
		if fl, ok := args[1].(*ast.FuncLit); ok {
			if p, ok := w.idx.stringValue(args[0]); ok {
				w.walkFunc(fl.Type, fl.Body, sc, joinPath(base, p))
				return false
			}
		}
	}

	if m, ok := domain.ParseMethod(name); ok && len(args) >= 2 {
		if p, ok := w.idx.stringValue(args[0]); ok {
			w.add(m, joinPath(base, p), args[len(args)-1], call.Pos())
		}
		return true
	}

	switch name {
	case "Handle", "HandleFunc":
		if len(args) >= 3 {
			if m, ok := w.methodArg(args[0]); ok {
				if p, ok := w.idx.stringValue(args[1]); ok {
					w.add(m, joinPath(base, p), args[len(args)-1], call.Pos())
				}
				return true
			}
		}
		if len(args) >= 2 {
			p, ok := w.idx.stringValue(args[0])
			if !ok {
				return true
			}
			if m, path, ok := splitMethodPattern(p); ok {
				w.add(m, joinPath(base, path), args[len(args)-1], call.Pos())
			}
		}
	case "Method", "MethodFunc", "Add":
		if len(args) >= 3 {
			m, ok := w.methodArg(args[0])
			p, pok := w.idx.stringValue(args[1])
			if ok && pok {
				w.add(m, joinPath(base, p), args[len(args)-1], call.Pos())
			}
		}
	case "Match":
		if len(args) >= 3 {
			p, ok := w.idx.stringValue(args[1])
			lit, isLit := args[0].(*ast.CompositeLit)
			if !ok || !isLit {
				return true
			}
			for _, elt := range lit.Elts {
				if m, ok := w.methodArg(elt); ok {
					w.add(m, joinPath(base, p), args[len(args)-1], call.Pos())
				}
			}
		}
	case "Any", "All":
		if len(args) >= 2 {
			if p, ok := w.idx.stringValue(args[0]); ok {
				for _, m := range domain.Methods {
					w.add(m, joinPath(base, p), args[len(args)-1], call.Pos())
				}
			}
		}
	}
	return true
}

// methodsChain handles gorilla's r.HandleFunc(path, h).Methods("GET", ...).
func (w *routeWalker) methodsChain(call *ast.CallExpr, sel *ast.SelectorExpr, sc scope) {
	inner, ok := sel.X.(*ast.CallExpr)
	if !ok {
		return
	}
	isel, ok := inner.Fun.(*ast.SelectorExpr)
	if !ok || (isel.Sel.Name != "HandleFunc" && isel.Sel.Name != "Handle") || len(inner.Args) < 2 {
		return
	}
	base, ok := w.routerExpr(sc, isel.X)
	if !ok {
		return
	}
	p, ok := w.idx.stringValue(inner.Args[0])
	if !ok {
		return
	}
	w.consumed[inner] = true
	for _, a := range call.Args {
		if m, ok := w.methodArg(a); ok {
			w.add(m, joinPath(base, p), inner.Args[len(inner.Args)-1], inner.Pos())
		}
	}
}

func (w *routeWalker) methodArg(e ast.Expr) (domain.Method, bool) {
	if m, ok := httpMethodConsts[exprString(e)]; ok {
		return m, true
	}
	s, ok := w.idx.stringValue(e)
	if !ok {
		return "", false
	}
	return domain.ParseMethod(s)
}

// splitMethodPattern reads a Go 1.22 mux pattern such as "GET /items/{id}".
// Patterns without a method default to GET; other verbs are rejected.
func splitMethodPattern(p string) (domain.Method, string, bool) {
	p = strings.TrimSpace(p)
	verb, rest, ok := strings.Cut(p, " ")
	if !ok {
		return domain.MethodGet, p, true
	}
	m, ok := domain.ParseMethod(verb)
	if !ok {
		return "", "", false
	}
	rest = strings.TrimSpace(rest)
	if i := strings.Index(rest, "/"); i > 0 {
		rest = rest[i:]
	}
	return m, rest, true
}

func (w *routeWalker) add(m domain.Method, path string, handler ast.Expr, pos token.Pos) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	w.routes = append(w.routes, route{method: m, path: path, handler: handler, pos: pos})
}
