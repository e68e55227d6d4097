package docs

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/i2y/apiforge/internal/domain"
)

var (
	queryList  = regexp.MustCompile(`(?im)\bquery\s+param(?:eter)?s?\s*:?[ \t]*([^.\n]+)`)
	headerList = regexp.MustCompile(`(?im)\bheaders?\s*:[ \t]*([^.\n]+)`)
	authHeader = regexp.MustCompile(`(?i)\bauthorization\s*:`)
	bodyList   = regexp.MustCompile(`(?im)\b(?:request\s+body|payload)\s*:[ \t]*([^.\n]+)`)
	paramList  = regexp.MustCompile(`(?im)^[ \t]*parameters?\s*:[ \t]*([^.\n]+)`)
	bulletDef  = regexp.MustCompile("(?m)^[ \\t]*[-*][ \\t]+`?([A-Za-z_][\\w.-]*)`?[ \\t]*\\(([^)]*)\\)[ \\t]*[:\\-]?[ \\t]*(.*)$")
	itemName   = regexp.MustCompile("^[`\"']?([A-Za-z_][\\w.-]*)")
	descLabel  = regexp.MustCompile(`(?im)^[ \t*_-]*(?:description|summary)[*_]*\s*:\s*(.+)$`)
	headingRe  = regexp.MustCompile(`(?m)^(#+)\s*(.+?)\s*#*\s*$`)
	tagsLabel  = regexp.MustCompile(`(?i)\btags?\s*:\s*\[([^\]]+)\]`)
	category   = regexp.MustCompile(`(?im)\bcategory\s*:\s*([^.\n]+)`)
)

// stopWords are never parameter names.
var stopWords = map[string]bool{
	"string": true, "integer": true, "int": true, "number": true, "boolean": true, "bool": true,
	"array": true, "object": true, "float": true, "none": true, "null": true, "true": true,
	"false": true, "and": true, "or": true, "the": true, "optional": true, "required": true,
	"bearer": true, "see": true, "json": true,
}

// window returns the text around matches[i], at most size bytes to each
// side and never past the neighbouring matches.
func window(text string, matches []match, i, size int) (before, after string) {
	m := matches[i]
	lo := m.start - size
	if lo < 0 {
		lo = 0
	}
	if i > 0 && matches[i-1].end > lo {
		lo = matches[i-1].end
	}
	hi := m.end + size
	if hi > len(text) {
		hi = len(text)
	}
	if i+1 < len(matches) && matches[i+1].start < hi {
		hi = matches[i+1].start
	}
	if lo > m.start {
		lo = m.start
	}
	if hi < m.end {
		hi = m.end
	}
	return text[lo:m.start], text[m.end:hi]
}

type collector struct {
	method domain.Method
	params domain.Parameters
	auth   bool
}

func (c *collector) add(p domain.Parameter) {
	if p.Name == "" || stopWords[strings.ToLower(p.Name)] || len(p.Name) < 2 {
		return
	}
	if p.Source == "" || p.Source == domain.SourceUnknown {
		p.Source = c.method.FallbackSource()
	}
	if p.Type == "" || p.Type == domain.TypeUnknown {
		p.Type = domain.TypeString
	}
	if p.Source == domain.SourceHeader && strings.EqualFold(p.Name, "Authorization") {
		c.auth = true
	}
	if p.Source == domain.SourcePath {
		p.Required = true
	}
	// a documented type refines an untyped placeholder
	if i := c.params.Index(p.Name); i >= 0 {
		if have := &c.params[i]; have.Source == domain.SourcePath && have.Type == domain.TypeString {
			have.Type = p.Type
			if have.Description == "" {
				have.Description = p.Description
			}
		}
		return
	}
	c.params.Add(p)
}

func (c *collector) addList(list string, src domain.ParamSource) {
	for _, item := range strings.Split(list, ",") {
		if m := itemName.FindStringSubmatch(strings.TrimSpace(item)); m != nil {
			c.add(domain.Parameter{Name: m[1], Source: src})
		}
	}
}

// parameters infers the parameters of m from the text around it.
func parameters(m match, ctx string) (domain.Parameters, bool) {
	c := &collector{method: m.method}
	for _, ph := range domain.PathPlaceholders(m.path) {
		c.add(domain.Parameter{Name: ph.Name, Type: ph.Type(), Source: domain.SourcePath})
	}
	for _, q := range m.query {
		c.add(domain.Parameter{Name: q, Source: domain.SourceQuery})
	}

	for _, p := range tableParams(ctx) {
		c.add(p)
	}
	for _, sm := range bulletDef.FindAllStringSubmatch(ctx, -1) {
		c.add(bulletParam(sm[1], sm[2], sm[3]))
	}
	for _, sm := range queryList.FindAllStringSubmatch(ctx, -1) {
		c.addList(sm[1], domain.SourceQuery)
	}
	for _, sm := range headerList.FindAllStringSubmatch(ctx, -1) {
		c.addList(sm[1], domain.SourceHeader)
	}
	if authHeader.MatchString(ctx) {
		c.add(domain.Parameter{Name: "Authorization", Source: domain.SourceHeader})
	}
	for _, sm := range bodyList.FindAllStringSubmatch(ctx, -1) {
		c.addList(sm[1], domain.SourceBody)
	}
	if m.method.HasBody() {
		for _, p := range exampleBody(ctx) {
			c.add(p)
		}
	}
	for _, sm := range paramList.FindAllStringSubmatch(ctx, -1) {
		c.addList(sm[1], "")
	}
	return c.params, c.auth
}

// tableParams reads markdown parameter tables such as
// | name | type | in | required | description |.
func tableParams(ctx string) []domain.Parameter {
	var (
		out  []domain.Parameter
		cols map[string]int
	)
	for _, line := range strings.Split(ctx, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			cols = nil
			continue
		}
		cells := splitRow(line)
		if cols == nil {
			cols = headerColumns(cells)
			continue
		}
		if isSeparator(cells) {
			continue
		}
		name := cell(cells, cols, "name")
		if name == "" || !isName(name) {
			continue
		}
		p := domain.Parameter{
			Name:        name,
			Type:        domain.NormalizeParamType(cell(cells, cols, "type")),
			Source:      domain.ParseParamSource(cell(cells, cols, "in")),
			Required:    truthy(cell(cells, cols, "required")),
			Description: cell(cells, cols, "description"),
		}
		out = append(out, p)
	}
	return out
}

func splitRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), "`*")
	}
	return parts
}

var columnAliases = map[string]string{
	"name": "name", "parameter": "name", "param": "name", "field": "name", "key": "name",
	"type": "type", "data type": "type",
	"in": "in", "location": "in", "source": "in", "where": "in",
	"required": "required", "mandatory": "required",
	"description": "description", "notes": "description", "details": "description",
}

// headerColumns maps column roles to indexes. A row without a name column
// is not a parameter table and yields an empty, non-nil map.
func headerColumns(cells []string) map[string]int {
	cols := make(map[string]int)
	for i, c := range cells {
		if role, ok := columnAliases[strings.ToLower(c)]; ok {
			if _, dup := cols[role]; !dup {
				cols[role] = i
			}
		}
	}
	if _, ok := cols["name"]; !ok {
		return map[string]int{}
	}
	return cols
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func cell(cells []string, cols map[string]int, role string) string {
	i, ok := cols[role]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "required", "x", "✓", "✔":
		return true
	}
	return false
}

// bulletParam reads a definition such as - `limit` (integer, query, optional): text.
func bulletParam(name, attrs, desc string) domain.Parameter {
	p := domain.Parameter{Name: name, Description: strings.TrimSpace(desc)}
	for _, a := range strings.Split(attrs, ",") {
		a = strings.ToLower(strings.TrimSpace(a))
		a = strings.TrimPrefix(a, "in ")
		switch {
		case a == "required":
			p.Required = true
		case a == "optional":
		case domain.ParseParamSource(a) != domain.SourceUnknown:
			p.Source = domain.ParseParamSource(a)
		case domain.NormalizeParamType(a) != domain.TypeUnknown:
			p.Type = domain.NormalizeParamType(a)
		}
	}
	return p
}

// exampleBody returns the top-level keys of the first JSON object example in
// ctx, in document order.
func exampleBody(ctx string) []domain.Parameter {
	for from := 0; from < len(ctx); {
		i := strings.IndexByte(ctx[from:], '{')
		if i < 0 {
			return nil
		}
		start := from + i
		end := balanced(ctx, start)
		if end < 0 {
			return nil
		}
		obj := ctx[start:end]
		var node yaml.Node
		if !strings.Contains(obj, ":") {
			from = start + 1
			continue
		}
		if err := yaml.Unmarshal([]byte(obj), &node); err == nil && len(node.Content) == 1 {
			if root := node.Content[0]; root.Kind == yaml.MappingNode && len(root.Content) > 0 {
				var out []domain.Parameter
				for k := 0; k+1 < len(root.Content); k += 2 {
					out = append(out, domain.Parameter{
						Name:   root.Content[k].Value,
						Type:   nodeType(root.Content[k+1]),
						Source: domain.SourceBody,
					})
				}
				return out
			}
		}
		from = start + 1
	}
	return nil
}

// balanced returns the offset just past the brace closing the one at start,
// or -1.
func balanced(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func nodeType(n *yaml.Node) domain.ParamType {
	switch n.Kind {
	case yaml.SequenceNode:
		return domain.TypeArray
	case yaml.MappingNode:
		return domain.TypeObject
	}
	switch n.Tag {
	case "!!int":
		return domain.TypeInteger
	case "!!float":
		return domain.TypeFloat
	case "!!bool":
		return domain.TypeBoolean
	}
	return domain.TypeString
}

// description is the labeled description after the match, else the first
// prose sentence after it, else the nearest heading before it.
func description(before, after string) string {
	if m := descLabel.FindStringSubmatch(after); m != nil {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(after, "\n")
	// the rest of the match line belongs to the match
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if !isProse(line) {
			if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "#") {
				break
			}
			continue
		}
		return firstSentence(line)
	}
	hs := headingRe.FindAllStringSubmatch(before, -1)
	for i := len(hs) - 1; i >= 0; i-- {
		if h := strings.TrimSpace(hs[i][2]); !layers[0].MatchString(hs[i][0]) {
			return h
		}
	}
	return ""
}

func isProse(line string) bool {
	if line == "" {
		return false
	}
	switch line[0] {
	case '#', '|', '`', '{', '}', '[', ']', '-', '*', '>', '<', '"':
		return false
	}
	for _, re := range layers {
		if re.MatchString(line) {
			return false
		}
	}
	return !strings.Contains(line, ":") || strings.Contains(line, ". ")
}

func firstSentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

// tags collects explicit tags, a category label, and the enclosing top-level
// heading.
func tags(ctx, heading string) []string {
	var out []string
	add := func(t string) {
		t = strings.Trim(strings.TrimSpace(t), `"'`+"`")
		if t == "" {
			return
		}
		for _, have := range out {
			if strings.EqualFold(have, t) {
				return
			}
		}
		out = append(out, t)
	}
	if m := tagsLabel.FindStringSubmatch(ctx); m != nil {
		for _, t := range strings.Split(m[1], ",") {
			add(t)
		}
	}
	if m := category.FindStringSubmatch(ctx); m != nil {
		add(m[1])
	}
	add(heading)
	return out
}

// topHeading is the last level-one heading before pos.
func topHeading(text string, pos int) string {
	h := ""
	for _, m := range headingRe.FindAllStringSubmatchIndex(text[:pos], -1) {
		if m[3]-m[2] == 1 {
			h = strings.TrimSpace(text[m[4]:m[5]])
		}
	}
	return h
}
