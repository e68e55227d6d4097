package goast

import (
	"go/ast"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

type handlerInfo struct {
	ftype *ast.FuncType
	body  *ast.BlockStmt
	doc   *ast.CommentGroup
}

// resolveHandler finds the function behind a route's handler argument. One
// level of wrapping call is unwrapped, either through its arguments or by
// following a constructor that returns a function literal.
func (idx *fileIndex) resolveHandler(e ast.Expr, depth int) (handlerInfo, bool) {
	switch h := e.(type) {
	case *ast.FuncLit:
		return handlerInfo{ftype: h.Type, body: h.Body}, true
	case *ast.Ident:
		if fd := idx.funcs[h.Name]; fd != nil {
			return handlerInfo{ftype: fd.Type, body: fd.Body, doc: fd.Doc}, true
		}
	case *ast.SelectorExpr:
		if fd := idx.methods[h.Sel.Name]; fd != nil {
			return handlerInfo{ftype: fd.Type, body: fd.Body, doc: fd.Doc}, true
		}
	case *ast.CallExpr:
		if depth > 0 {
			return handlerInfo{}, false
		}
		for i := len(h.Args) - 1; i >= 0; i-- {
			if hi, ok := idx.resolveHandler(h.Args[i], depth+1); ok {
				return hi, true
			}
		}
		if outer, ok := idx.resolveHandler(h.Fun, depth+1); ok && outer.body != nil {
			for _, stmt := range outer.body.List {
				ret, ok := stmt.(*ast.ReturnStmt)
				if !ok || len(ret.Results) != 1 {
					continue
				}
				if lit, ok := ret.Results[0].(*ast.FuncLit); ok {
					return handlerInfo{ftype: lit.Type, body: lit.Body, doc: outer.doc}, true
				}
			}
		}
	}
	return handlerInfo{}, false
}

// Handler parameter kinds.
const (
	kindGin   = "gin"
	kindEcho  = "echo"
	kindFiber = "fiber"
	kindReq   = "request"
)

var contextTypes = map[string]string{
	"*gin.Context":  kindGin,
	"echo.Context":  kindEcho,
	"*fiber.Ctx":    kindFiber,
	"fiber.Ctx":     kindFiber,
	"*http.Request": kindReq,
}

type accessor struct {
	source domain.ParamSource
	typ    domain.ParamType
	// defaultArg is the index of the argument holding a default value.
	defaultArg int
}

// contextAccessors are the framework context methods that read one named
// request value.
var contextAccessors = map[string]accessor{
	"Param":           {source: domain.SourcePath},
	"Params":          {source: domain.SourcePath},
	"URLParam":        {source: domain.SourcePath},
	"PathValue":       {source: domain.SourcePath},
	"PathParam":       {source: domain.SourcePath},
	"Query":           {source: domain.SourceQuery},
	"DefaultQuery":    {source: domain.SourceQuery, defaultArg: 1},
	"QueryParam":      {source: domain.SourceQuery},
	"GetQuery":        {source: domain.SourceQuery},
	"QueryArray":      {source: domain.SourceQuery, typ: domain.TypeArray},
	"GetQueryArray":   {source: domain.SourceQuery, typ: domain.TypeArray},
	"GetHeader":       {source: domain.SourceHeader},
	"Cookie":          {source: domain.SourceCookie},
	"Cookies":         {source: domain.SourceCookie},
	"PostForm":        {source: domain.SourceForm},
	"DefaultPostForm": {source: domain.SourceForm, defaultArg: 1},
	"FormValue":       {source: domain.SourceForm},
	"FormFile":        {source: domain.SourceForm, typ: domain.TypeFile},
}

// requestAccessors are the *http.Request methods that read one named value.
var requestAccessors = map[string]accessor{
	"FormValue":     {source: domain.SourceForm},
	"PostFormValue": {source: domain.SourceForm},
	"FormFile":      {source: domain.SourceForm, typ: domain.TypeFile},
	"Cookie":        {source: domain.SourceCookie},
	"PathValue":     {source: domain.SourcePath},
}

// bindCalls decode the request into a variable; the value is the source
// untagged fields get ("" means the method fallback).
var bindCalls = map[string]domain.ParamSource{
	"ShouldBindJSON":  domain.SourceBody,
	"BindJSON":        domain.SourceBody,
	"BodyParser":      domain.SourceBody,
	"Decode":          domain.SourceBody,
	"ShouldBindQuery": domain.SourceQuery,
	"BindQuery":       domain.SourceQuery,
	"QueryParser":     domain.SourceQuery,
	"ShouldBindUri":   domain.SourcePath,
	"BindUri":         domain.SourcePath,
	"ShouldBind":      "",
	"Bind":            "",
}

var strconvTypes = map[string]domain.ParamType{
	"strconv.Atoi":       domain.TypeInteger,
	"strconv.ParseInt":   domain.TypeInteger,
	"strconv.ParseUint":  domain.TypeInteger,
	"strconv.ParseFloat": domain.TypeFloat,
	"strconv.ParseBool":  domain.TypeBoolean,
}

// Inference ranks; a lower rank decides the source of a name.
const (
	rankPlaceholder = iota + 1
	rankRequestVar
	rankAccessor
	rankRequestChain
	rankStructField
	rankFallback
)

type finding struct {
	param domain.Parameter
	rank  int
	pos   token.Pos
}

type inferer struct {
	idx       *fileIndex
	method    domain.Method
	kinds     map[string]string
	findings  []finding
	localType map[string]ast.Expr
	bound     []boundVar
	fromCall  map[string]string
	queryVars map[string]bool
	muxVars   map[string]bool
	typeHints map[string]domain.ParamType
	auth      bool
}

type boundVar struct {
	name   string
	source domain.ParamSource
	pos    token.Pos
}

// inferParameters builds the parameter list of one route from its path and
// handler body.
func (idx *fileIndex) inferParameters(method domain.Method, path string, h handlerInfo, ok bool) (domain.Parameters, bool) {
	var params domain.Parameters
	for _, ph := range domain.PathPlaceholders(path) {
		typ := ph.Type()
		if typ == domain.TypeUnknown {
			typ = domain.TypeString
		}
		params.Add(domain.Parameter{Name: ph.Name, Type: typ, Source: domain.SourcePath, Required: true})
	}
	if !ok || h.body == nil {
		return params, false
	}

	in := &inferer{
		idx:       idx,
		method:    method,
		kinds:     make(map[string]string),
		localType: make(map[string]ast.Expr),
		fromCall:  make(map[string]string),
		queryVars: make(map[string]bool),
		muxVars:   make(map[string]bool),
		typeHints: make(map[string]domain.ParamType),
	}
	if h.ftype != nil && h.ftype.Params != nil {
		for _, field := range h.ftype.Params.List {
			kind, known := contextTypes[exprString(field.Type)]
			if !known {
				continue
			}
			for _, name := range field.Names {
				in.kinds[name.Name] = kind
			}
		}
	}
	ast.Inspect(h.body, in.visit)
	in.resolveBound()

	sort.SliceStable(in.findings, func(i, j int) bool { return in.findings[i].pos < in.findings[j].pos })
	best := make(map[string]finding)
	var order []string
	for _, f := range in.findings {
		prev, seen := best[f.param.Name]
		if !seen {
			order = append(order, f.param.Name)
		}
		if !seen || f.rank < prev.rank {
			best[f.param.Name] = f
		}
	}
	for _, name := range order {
		p := best[name].param
		if p.Source == "" {
			p.Source = method.FallbackSource()
		}
		if p.Type == "" {
			p.Type = domain.TypeString
		}
		params.Add(p)
	}
	for i := range params {
		if t, ok := in.typeHints[params[i].Name]; ok && params[i].Type == domain.TypeString {
			params[i].Type = t
		}
	}
	return params, in.auth
}

func (in *inferer) add(p domain.Parameter, rank int, pos token.Pos) {
	if p.Name == "" {
		return
	}
	if p.Source == domain.SourceHeader && strings.EqualFold(p.Name, "Authorization") {
		in.auth = true
	}
	in.findings = append(in.findings, finding{param: p, rank: rank, pos: pos})
}

func (in *inferer) visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.AssignStmt:
		for i, lhs := range node.Lhs {
			id, ok := lhs.(*ast.Ident)
			if !ok {
				continue
			}
			rhs := node.Rhs[0]
			if len(node.Rhs) == len(node.Lhs) {
				rhs = node.Rhs[i]
			} else if i > 0 {
				continue
			}
			in.trackLocal(id.Name, rhs)
		}
	case *ast.ValueSpec:
		for i, name := range node.Names {
			switch {
			case node.Type != nil:
				in.localType[name.Name] = node.Type
			case i < len(node.Values):
				in.trackLocal(name.Name, node.Values[i])
			}
		}
	case *ast.IndexExpr:
		// mux.Vars(r)["id"] or vars["id"]
		isVars := false
		switch x := node.X.(type) {
		case *ast.CallExpr:
			isVars = exprString(x.Fun) == "mux.Vars"
		case *ast.Ident:
			isVars = in.muxVars[x.Name]
		}
		if !isVars {
			break
		}
		if name, ok := in.idx.stringValue(node.Index); ok {
			in.add(domain.Parameter{Name: name, Source: domain.SourcePath, Required: true}, rankAccessor, node.Pos())
		}
	case *ast.CallExpr:
		in.visitCall(node)
	}
	return true
}

func (in *inferer) trackLocal(name string, rhs ast.Expr) {
	switch v := rhs.(type) {
	case *ast.CompositeLit:
		if v.Type != nil {
			in.localType[name] = v.Type
		}
	case *ast.UnaryExpr:
		if lit, ok := v.X.(*ast.CompositeLit); ok && v.Op == token.AND && lit.Type != nil {
			in.localType[name] = lit.Type
		}
	case *ast.CallExpr:
		if p, _, ok := in.accessorCall(v); ok {
			in.fromCall[name] = p.Name
		}
		if sel, ok := v.Fun.(*ast.SelectorExpr); ok && sel.Sel.Name == "Query" && len(v.Args) == 0 {
			in.queryVars[name] = true
		}
		if exprString(v.Fun) == "mux.Vars" {
			in.muxVars[name] = true
		}
		if exprString(v.Fun) == "new" && len(v.Args) == 1 {
			in.localType[name] = v.Args[0]
		}
	}
}

func (in *inferer) visitCall(call *ast.CallExpr) {
	if t, ok := strconvTypes[exprString(call.Fun)]; ok && len(call.Args) > 0 {
		switch arg := call.Args[0].(type) {
		case *ast.CallExpr:
			if p, _, ok := in.accessorCall(arg); ok {
				in.typeHints[p.Name] = t
			}
		case *ast.Ident:
			if name, ok := in.fromCall[arg.Name]; ok {
				in.typeHints[name] = t
			}
		}
		return
	}
	if p, rank, ok := in.accessorCall(call); ok {
		in.add(p, rank, call.Pos())
		return
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}
	if src, ok := bindCalls[sel.Sel.Name]; ok && len(call.Args) > 0 {
		target := call.Args[0]
		if u, ok := target.(*ast.UnaryExpr); ok && u.Op == token.AND {
			target = u.X
		}
		if id, ok := target.(*ast.Ident); ok {
			in.bound = append(in.bound, boundVar{name: id.Name, source: src, pos: call.Pos()})
		}
	}
}

// accessorCall recognizes a call that reads one named request value.
func (in *inferer) accessorCall(call *ast.CallExpr) (domain.Parameter, int, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return domain.Parameter{}, 0, false
	}
	method := sel.Sel.Name

	// chi.URLParam(r, "id")
	if exprString(sel) == "chi.URLParam" && len(call.Args) == 2 {
		if name, ok := in.idx.stringValue(call.Args[1]); ok {
			return domain.Parameter{Name: name, Source: domain.SourcePath, Required: true}, rankAccessor, true
		}
	}
	if len(call.Args) == 0 {
		return domain.Parameter{}, 0, false
	}
	name, ok := in.idx.stringValue(call.Args[0])
	if !ok {
		return domain.Parameter{}, 0, false
	}

	if recv, ok := sel.X.(*ast.Ident); ok {
		switch kind := in.kinds[recv.Name]; {
		case kind == kindReq:
			if acc, ok := requestAccessors[method]; ok {
				return in.param(name, acc, call), rankRequestChain, true
			}
		case kind != "":
			if method == "Get" && kind == kindFiber {
				return domain.Parameter{Name: name, Source: domain.SourceHeader}, rankAccessor, true
			}
			if acc, ok := contextAccessors[method]; ok {
				return in.param(name, acc, call), rankAccessor, true
			}
		case in.queryVars[recv.Name] && method == "Get":
			return domain.Parameter{Name: name, Source: domain.SourceQuery}, rankRequestChain, true
		}
	}

	if method != "Get" {
		return domain.Parameter{}, 0, false
	}
	switch x := sel.X.(type) {
	case *ast.SelectorExpr:
		// r.Header.Get, c.Request.Header.Get, c.Request().Header.Get
		if x.Sel.Name == "Header" {
			return domain.Parameter{Name: name, Source: domain.SourceHeader}, rankRequestChain, true
		}
	case *ast.CallExpr:
		// r.URL.Query().Get
		if qs, ok := x.Fun.(*ast.SelectorExpr); ok && qs.Sel.Name == "Query" && len(x.Args) == 0 {
			return domain.Parameter{Name: name, Source: domain.SourceQuery}, rankRequestChain, true
		}
	}
	return domain.Parameter{}, 0, false
}

func (in *inferer) param(name string, acc accessor, call *ast.CallExpr) domain.Parameter {
	p := domain.Parameter{Name: name, Source: acc.source, Type: acc.typ}
	if p.Source == domain.SourcePath {
		p.Required = true
	}
	if acc.defaultArg > 0 && len(call.Args) > acc.defaultArg {
		if def, ok := in.idx.stringValue(call.Args[acc.defaultArg]); ok {
			p.Default = def
		}
	}
	return p
}

// resolveBound turns decoded variables into parameters: a req/request
// variable of a foreign type becomes one body parameter, a file-local
// struct contributes its fields.
func (in *inferer) resolveBound() {
	done := make(map[string]bool)
	for _, b := range in.bound {
		if done[b.name] {
			continue
		}
		done[b.name] = true
		typ := in.localType[b.name]
		if st, ok := in.idx.structOf(typ); ok {
			in.structFields(st, b.source, b.pos)
			continue
		}
		rank := rankRequestChain
		if isRequestVarName(b.name) {
			rank = rankRequestVar
		}
		src := b.source
		if src == "" {
			src = domain.SourceBody
		}
		in.add(domain.Parameter{Name: b.name, Type: domain.TypeObject, Source: src, Required: true}, rank, b.pos)
	}
	for name, typ := range in.localType {
		if done[name] || !isRequestVarName(name) {
			continue
		}
		if _, local := in.idx.structOf(typ); local || strings.Contains(exprString(typ), "http.Request") {
			continue
		}
		in.add(domain.Parameter{Name: name, Type: domain.TypeObject, Source: domain.SourceBody, Required: true}, rankRequestVar, typ.Pos())
	}
}

func isRequestVarName(name string) bool {
	return name == "req" || name == "request"
}

var tagSources = []struct {
	key    string
	source domain.ParamSource
}{
	{"uri", domain.SourcePath},
	{"param", domain.SourcePath},
	{"path", domain.SourcePath},
	{"query", domain.SourceQuery},
	{"header", domain.SourceHeader},
	{"reqHeader", domain.SourceHeader},
	{"form", domain.SourceForm},
	{"json", domain.SourceBody},
	{"xml", domain.SourceBody},
}

func (in *inferer) structFields(st *ast.StructType, def domain.ParamSource, pos token.Pos) {
	for _, field := range st.Fields.List {
		var tag reflect.StructTag
		if field.Tag != nil {
			if raw, err := strconv.Unquote(field.Tag.Value); err == nil {
				tag = reflect.StructTag(raw)
			}
		}
		for _, ident := range field.Names {
			if !ident.IsExported() {
				continue
			}
			p, skip := in.fieldParam(ident.Name, field.Type, tag, def)
			if skip {
				continue
			}
			in.add(p, rankStructField, pos)
		}
	}
}

func (in *inferer) fieldParam(fieldName string, typ ast.Expr, tag reflect.StructTag, def domain.ParamSource) (domain.Parameter, bool) {
	p := domain.Parameter{Name: fieldName, Source: def, Type: in.goType(typ)}
	for _, ts := range tagSources {
		v, ok := tag.Lookup(ts.key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return p, true
		}
		if name != "" {
			p.Name = name
		}
		p.Source = ts.source
		if ts.source == domain.SourceForm && in.method.FallbackSource() == domain.SourceQuery {
			p.Source = domain.SourceQuery
		}
		break
	}
	if strings.HasSuffix(exprString(typ), "multipart.FileHeader") {
		p.Source = domain.SourceForm
		p.Type = domain.TypeFile
	}
	p.Required = strings.Contains(tag.Get("binding"), "required") || strings.Contains(tag.Get("validate"), "required")
	if p.Source == domain.SourcePath {
		p.Required = true
	}
	return p, false
}

func (in *inferer) goType(e ast.Expr) domain.ParamType {
	if _, ok := in.idx.structOf(e); ok {
		return domain.TypeObject
	}
	if _, ok := e.(*ast.MapType); ok {
		return domain.TypeObject
	}
	t := domain.NormalizeParamType(exprString(e))
	if t == domain.TypeUnknown {
		return domain.TypeString
	}
	return t
}
