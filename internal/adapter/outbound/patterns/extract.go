package patterns

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/i2y/apiforge/internal/domain"
)

type methodPath struct {
	method domain.Method
	path   string
	query  []string
}

type hit struct {
	start, end  int
	routes      []methodPath
	description string
	fixed       domain.Parameters
}

type prefixHit struct {
	pos   int
	value string
}

// group returns the leftmost non-empty capture named name.
func group(re *regexp.Regexp, text string, m []int, name string) string {
	for i, n := range re.SubexpNames() {
		if n != name || m[2*i] < 0 {
			continue
		}
		if v := text[m[2*i]:m[2*i+1]]; v != "" {
			return v
		}
	}
	return ""
}

// groupStart returns the offset of the first participating group named
// name, or -1.
func groupStart(re *regexp.Regexp, m []int, name string) int {
	for i, n := range re.SubexpNames() {
		if n == name && m[2*i] >= 0 {
			return m[2*i]
		}
	}
	return -1
}

// Endpoints runs the framework row over text.
func (fw *Framework) Endpoints(origin, text string, window int) []domain.Endpoint {
	claimed := make(map[int]bool)
	prefixes := fw.findPrefixes(text, claimed)
	hits := fw.findRoutes(text, prefixes, claimed)

	var eps []domain.Endpoint
	seen := make(map[domain.EndpointKey]int)
	for i, h := range hits {
		w := fw.window(text, hits, i, window)
		for _, r := range h.routes {
			params, auth := fw.parameters(r.method, r.path, w)
			for _, q := range r.query {
				params.Add(domain.Parameter{Name: q, Type: domain.TypeString, Source: domain.SourceQuery})
			}
			for _, p := range h.fixed {
				params.Add(p)
			}
			ep := domain.Endpoint{
				Path:         r.path,
				Method:       r.method,
				Description:  h.description,
				Parameters:   params,
				AuthRequired: auth,
				Origin:       origin,
				Extractor:    extractorName,
			}
			if at, ok := seen[ep.Key()]; ok {
				if h.description != "" && eps[at].Description != "" {
					eps[at].Description += "; " + h.description
				}
				continue
			}
			seen[ep.Key()] = len(eps)
			eps = append(eps, ep)
		}
	}
	return eps
}

func (fw *Framework) findPrefixes(text string, claimed map[int]bool) []prefixHit {
	var out []prefixHit
	for _, re := range fw.prefixes {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			v := group(re, text, m, "prefix")
			if class := group(re, text, m, "class"); class != "" {
				name := strings.TrimSuffix(class, "Controller")
				v = replaceFold(v, "[controller]", name)
			}
			if p := groupStart(re, m, "prefix"); p >= 0 {
				claimed[p] = true
			}
			out = append(out, prefixHit{pos: m[0], value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// prefixAt is the last prefix declared before pos.
func prefixAt(prefixes []prefixHit, pos int) string {
	p := ""
	for _, ph := range prefixes {
		if ph.pos > pos {
			break
		}
		p = ph.value
	}
	return p
}

func (fw *Framework) findRoutes(text string, prefixes []prefixHit, claimed map[int]bool) []hit {
	var hits []hit
	for _, rp := range fw.routes {
		for _, m := range rp.re.FindAllStringSubmatchIndex(text, -1) {
			claims := claimsOf(rp.re, m)
			taken := false
			for _, c := range claims {
				taken = taken || claimed[c]
			}
			if taken {
				continue
			}
			methods, ok := rp.methods(text, m)
			if !ok {
				continue
			}
			for _, c := range claims {
				claimed[c] = true
			}

			raw := group(rp.re, text, m, "path")
			if segs := group(rp.re, text, m, "segments"); segs != "" {
				raw = joinSegments(segs)
			}
			h := hit{start: m[0], end: m[1], fixed: rp.fixed}
			path, query := cleanPath(raw)
			if path == "" {
				path = rp.path
			}
			path = joinPath(prefixAt(prefixes, m[0]), path)
			if kind := group(rp.re, text, m, "kind"); kind != "" {
				h.description = graphqlDescription(kind, group(rp.re, text, m, "fields"))
			}

			if rp.member != "" {
				for _, mth := range []domain.Method{domain.MethodGet, domain.MethodPost} {
					h.routes = append(h.routes, methodPath{method: mth, path: path})
				}
				for _, mth := range []domain.Method{domain.MethodGet, domain.MethodPut, domain.MethodPatch, domain.MethodDelete} {
					h.routes = append(h.routes, methodPath{method: mth, path: joinPath(path, rp.member)})
				}
			} else {
				for _, mth := range methods {
					h.routes = append(h.routes, methodPath{method: mth, path: path, query: query})
				}
			}
			hits = append(hits, h)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	return hits
}

// claimsOf lists the offsets that identify a route declaration. Two patterns
// matching the same method or path token describe the same route.
func claimsOf(re *regexp.Regexp, m []int) []int {
	var out []int
	for _, name := range []string{"method", "methods", "path", "segments"} {
		if p := groupStart(re, m, name); p >= 0 {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, m[0])
	}
	return out
}

func (rp routePattern) methods(text string, m []int) ([]domain.Method, bool) {
	if v := group(rp.re, text, m, "methods"); v != "" {
		var out []domain.Method
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '|' || unicode.IsSpace(r) }) {
			f = strings.Trim(f, `"'`+"`:")
			f = strings.TrimPrefix(f, "RequestMethod.")
			if mth, ok := domain.ParseMethod(f); ok && !containsMethod(out, mth) {
				out = append(out, mth)
			}
		}
		return out, len(out) > 0
	}
	if v := group(rp.re, text, m, "method"); v != "" {
		mth, ok := domain.ParseMethod(v)
		if !ok {
			return nil, false
		}
		return []domain.Method{mth}, true
	}
	if groupStart(rp.re, m, "methods") >= 0 || groupStart(rp.re, m, "method") >= 0 {
		return nil, false
	}
	if rp.all {
		return domain.Methods, true
	}
	if rp.method != "" {
		return []domain.Method{rp.method}, true
	}
	return []domain.Method{domain.MethodGet}, true
}

func containsMethod(ms []domain.Method, m domain.Method) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}

// window is the handler text of hits[i]: from the route declaration up to
// the next declaration, capped at limit bytes.
func (fw *Framework) window(text string, hits []hit, i, limit int) string {
	start := hits[i].start
	end := len(text)
	for j := i + 1; j < len(hits); j++ {
		if hits[j].start > start {
			end = hits[j].start
			break
		}
	}
	if limit > 0 && end-start > limit {
		end = start + limit
	}
	w := text[start:end]
	if fw.handlerEnd == nil {
		return w
	}
	from := hits[i].end - start
	if from > len(w) {
		return w
	}
	if fw.handlerStart != nil {
		if loc := fw.handlerStart.FindStringIndex(w[from:]); loc != nil {
			from += loc[1]
		}
	}
	if loc := fw.handlerEnd.FindStringIndex(w[from:]); loc != nil {
		w = w[:from+loc[0]]
	}
	return w
}

var skipNames = map[string]bool{
	"self": true, "cls": true, "request": true, "req": true, "res": true, "response": true,
	"db": true, "session": true, "ctx": true, "context": true, "background_tasks": true,
}

var skipHeaders = map[string]bool{"content-type": true, "accept": true}

// parameters collects the parameters of one route from its handler window.
// Path placeholders come first; each pattern then adds names not yet seen.
func (fw *Framework) parameters(method domain.Method, path, window string) (domain.Parameters, bool) {
	var params domain.Parameters
	for _, ph := range domain.PathPlaceholders(path) {
		params.Add(domain.Parameter{
			Name:     ph.Name,
			Type:     domain.NormalizeParamTypeOr(ph.Qualifier, orString(ph.Type())),
			Source:   domain.SourcePath,
			Required: true,
		})
	}
	var sig []string
	if fw.signature != nil {
		if m := fw.signature.FindStringSubmatchIndex(window); m != nil {
			sig = splitTopLevel(group(fw.signature, window, m, "sig"))
		}
	}

	auth := false
	add := func(p domain.Parameter) {
		if p.Source == domain.SourceHeader {
			lower := strings.ToLower(p.Name)
			if lower == "authorization" {
				auth = true
			}
			if skipHeaders[lower] {
				return
			}
		}
		// a typed handler argument refines an untyped placeholder
		if i := params.Index(p.Name); i >= 0 {
			if params[i].Source == domain.SourcePath && params[i].Type == domain.TypeString {
				switch p.Type {
				case domain.TypeInteger, domain.TypeFloat, domain.TypeBoolean:
					params[i].Type = p.Type
				}
			}
			return
		}
		params.Add(p)
	}

	for _, pp := range fw.params {
		if pp.signature {
			for _, part := range sig {
				if m := pp.re.FindStringSubmatchIndex(part); m != nil {
					for _, p := range pp.build(part, m, method) {
						add(p)
					}
				}
			}
			continue
		}
		for _, m := range pp.re.FindAllStringSubmatchIndex(window, -1) {
			for _, p := range pp.build(window, m, method) {
				add(p)
			}
		}
	}
	return params, auth
}

func orString(t domain.ParamType) domain.ParamType {
	if t == domain.TypeUnknown {
		return domain.TypeString
	}
	return t
}

// build turns one match into parameters. Destructuring and permit lists
// yield several.
func (pp paramPattern) build(text string, m []int, method domain.Method) []domain.Parameter {
	src := pp.source
	if src == "" {
		src = method.FallbackSource()
	}

	type named struct{ name, def string }
	var names []named
	optional := false
	if list := group(pp.re, text, m, "names"); list != "" {
		for _, n := range splitNames(list) {
			names = append(names, named{name: n})
		}
	} else {
		n, def := "", group(pp.re, text, m, "default")
		if args := group(pp.re, text, m, "args"); args != "" {
			var adef string
			n, adef, optional = annotationArgs(args)
			if adef != "" {
				def = adef
			}
		}
		if n == "" {
			n = group(pp.re, text, m, "name")
		}
		if n == "" {
			n = pp.name
		}
		names = append(names, named{name: n, def: def})
	}

	typ := pp.typ
	if typ == "" {
		typ = typeOf(group(pp.re, text, m, "type"))
	}

	var out []domain.Parameter
	for _, nm := range names {
		name := cleanName(nm.name)
		if name == "" || skipNames[name] {
			continue
		}
		def, skip := defaultValue(nm.def)
		if skip {
			continue
		}
		p := domain.Parameter{Name: name, Type: typ, Source: src, Required: pp.required}
		if def != nil {
			p.Default = typedDefault(typ, def.(string))
		}
		if pp.requiredNoDefault {
			p.Required = def == nil && !strings.HasPrefix(strings.TrimSpace(nm.def), "None")
		}
		if optional || def != nil {
			p.Required = false
		}
		if src == domain.SourcePath {
			p.Required = true
		}
		out = append(out, p)
	}
	return out
}

var (
	argName     = regexp.MustCompile(`\b(?:value|name)\s*=\s*"([^"]*)"`)
	argBare     = regexp.MustCompile(`^\s*"([^"]*)"`)
	argDefault  = regexp.MustCompile(`\bdefaultValue\s*=\s*"([^"]*)"`)
	argOptional = regexp.MustCompile(`\brequired\s*=\s*false\b`)
)

// annotationArgs reads the arguments of a Java-style parameter annotation
// such as @RequestParam(value = "q", required = false).
func annotationArgs(args string) (name, def string, optional bool) {
	if m := argName.FindStringSubmatch(args); m != nil {
		name = m[1]
	} else if m := argBare.FindStringSubmatch(args); m != nil {
		name = m[1]
	}
	if m := argDefault.FindStringSubmatch(args); m != nil {
		def = m[1]
	}
	optional = argOptional.MatchString(args) || def != ""
	return name, def, optional
}

// typeOf normalizes a source-language type label. Unknown capitalized names
// are taken to be classes and map to object.
func typeOf(label string) domain.ParamType {
	l := strings.TrimSpace(label)
	if l == "" {
		return domain.TypeString
	}
	if i := strings.Index(l, "|"); i > 0 {
		l = strings.TrimSpace(l[:i])
	}
	l = strings.TrimSuffix(l, "?")
	if t := domain.NormalizeParamType(l); t != domain.TypeUnknown {
		return t
	}
	base := l
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	if base != "" && unicode.IsUpper(rune(base[0])) {
		return domain.TypeObject
	}
	return domain.TypeString
}

// defaultValue strips quoting from a captured default. Calls are not
// defaults, except dependency markers which disqualify the parameter.
func defaultValue(raw string) (any, bool) {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return nil, false
	case strings.HasPrefix(v, "Depends") || strings.HasPrefix(v, "Security"):
		return nil, true
	case strings.Contains(v, "("), v == "...", v == "None", v == "null", v == "nil", v == "undefined":
		return nil, false
	}
	return strings.Trim(v, `"'`+"`"), false
}

func typedDefault(t domain.ParamType, v string) any {
	switch t {
	case domain.TypeInteger:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case domain.TypeFloat:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case domain.TypeBoolean:
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return v
}

func cleanName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"'`+"`")
	n = strings.TrimPrefix(n, ":")
	n = strings.TrimPrefix(n, "...")
	return strings.TrimSpace(n)
}

// splitNames reads a destructuring or permit list such as
// "id, name: alias, page = 1" or ":title, :body".
func splitNames(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if i := strings.IndexAny(part, ":="); i > 0 {
			part = part[:i]
		}
		part = cleanName(part)
		if part != "" && isIdent(part) {
			out = append(out, part)
		}
	}
	return out
}

func isIdent(s string) bool {
	for i, r := range s {
		if r == '_' || r == '$' || r == '-' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}

// splitTopLevel splits a parameter list on commas outside brackets.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, s[start:])
	}
	return out
}

var templateExpr = regexp.MustCompile(`\$\{\s*(?:[\w$]+\.)*([\w$]+)\s*\}`)

// cleanPath turns a captured route string into a path template and the
// query parameter names written into it.
func cleanPath(raw string) (string, []string) {
	p := strings.TrimSpace(raw)
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			p = rest[j:]
		} else {
			p = "/"
		}
	}
	// a leading template expression is a base URL
	if strings.HasPrefix(p, "${") {
		if i := strings.Index(p, "}"); i >= 0 {
			p = p[i+1:]
		}
	}
	p = templateExpr.ReplaceAllString(p, "{$1}")
	if i := strings.Index(p, "#"); i >= 0 {
		p = p[:i]
	}
	var query []string
	if base, q, ok := strings.Cut(p, "?"); ok {
		p = base
		for _, kv := range strings.Split(q, "&") {
			k, _, _ := strings.Cut(kv, "=")
			k = strings.Trim(k, "<>{} ")
			if k != "" && isIdent(k) {
				query = append(query, k)
			}
		}
	}
	if p == "" {
		return "", query
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p, query
}

func joinSegments(segs string) string {
	var parts []string
	for _, s := range strings.Split(segs, ",") {
		s = strings.Trim(strings.TrimSpace(s), `"`)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return "/" + strings.Join(parts, "/")
}

func joinPath(base, p string) string {
	base = strings.TrimSpace(base)
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	base = strings.TrimSuffix(base, "/")
	switch {
	case p == "" || p == "/":
		if base == "" {
			return "/"
		}
		return base
	case strings.HasPrefix(p, "/"):
		return base + p
	}
	return base + "/" + p
}

func replaceFold(s, old, repl string) string {
	i := strings.Index(strings.ToLower(s), strings.ToLower(old))
	if i < 0 {
		return s
	}
	return s[:i] + repl + s[i+len(old):]
}

var graphqlField = regexp.MustCompile(`(?m)^\s*(\w+)\s*[(:]`)

func graphqlDescription(kind, fields string) string {
	var names []string
	for _, m := range graphqlField.FindAllStringSubmatch(fields, -1) {
		names = append(names, m[1])
	}
	if len(names) == 0 {
		return "GraphQL " + kind
	}
	return "GraphQL " + kind + ": " + strings.Join(names, ", ")
}
