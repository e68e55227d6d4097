// Package patterns finds HTTP routes in source code of languages without a
// structural parser. A framework is picked by keyword scoring and its row of
// regular expressions is run over the text.
package patterns

import (
	"regexp"
	"strings"

	"github.com/i2y/apiforge/internal/domain"
)

type indicator struct {
	keyword string
	weight  int
}

type routePattern struct {
	re *regexp.Regexp
	// method applies when the pattern has no method group; empty means GET.
	method domain.Method
	// path is used when the pattern captures no path.
	path string
	// all registers every supported method.
	all bool
	// member expands a resource declaration into collection and member
	// routes, the member path being the collection path plus member.
	member string
	// fixed parameters attach to every route the pattern yields.
	fixed domain.Parameters
}

type paramPattern struct {
	re *regexp.Regexp
	// source is where the parameter travels; empty means the method fallback.
	source domain.ParamSource
	// typ overrides the type group.
	typ domain.ParamType
	// name is used when the pattern captures no name.
	name     string
	required bool
	// requiredNoDefault marks the parameter required when no default was
	// captured.
	requiredNoDefault bool
	// signature applies the pattern to each handler signature parameter
	// rather than the window text.
	signature bool
}

// Framework is one row of the detection table.
type Framework struct {
	Name       string
	languages  []string
	secondary  bool
	indicators []indicator
	routes     []routePattern
	params     []paramPattern
	prefixes   []*regexp.Regexp

	// handlerStart and handlerEnd cut the handler window for languages
	// whose handler follows its route declaration.
	handlerStart *regexp.Regexp
	handlerEnd   *regexp.Regexp
	// signature captures the handler parameter list in group "sig".
	signature *regexp.Regexp
}

func (fw *Framework) appliesTo(lang string) bool {
	if len(fw.languages) == 0 {
		return true
	}
	for _, l := range fw.languages {
		if l == lang {
			return true
		}
	}
	return false
}

// compile expands the shorthand tokens used in the table:
// {Q} a quote, {S} the body of a quoted string, {M} a method word.
func compile(p string) *regexp.Regexp {
	return regexp.MustCompile(tokens.Replace(p))
}

var tokens = strings.NewReplacer(
	"{Q}", "[\"'`]",
	"{S}", "[^\"'`\\n]*",
	"{M}", "(?i:get|post|put|delete|patch)",
)

func compileAll(ps ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(ps))
	for i, p := range ps {
		out[i] = compile(p)
	}
	return out
}

func route(p string) routePattern { return routePattern{re: compile(p)} }

func param(p string, src domain.ParamSource) paramPattern {
	return paramPattern{re: compile(p), source: src}
}

func requiredParam(p string, src domain.ParamSource) paramPattern {
	return paramPattern{re: compile(p), source: src, required: true}
}

func fileParam(p string) paramPattern {
	return paramPattern{re: compile(p), source: domain.SourceForm, typ: domain.TypeFile}
}

func headerParam(p string) paramPattern { return param(p, domain.SourceHeader) }

// jsAccessors builds the request-object access patterns shared by the
// JavaScript server frameworks. Each argument is a regexp fragment for the
// object holding that kind of value.
func jsAccessors(path, query, body, headers string) []paramPattern {
	kinds := []struct {
		obj string
		src domain.ParamSource
	}{
		{path, domain.SourcePath},
		{query, domain.SourceQuery},
		{body, domain.SourceBody},
		{headers, domain.SourceHeader},
	}
	var out []paramPattern
	for _, k := range kinds {
		out = append(out,
			param(`\b`+k.obj+`\.(?P<name>[A-Za-z_$][\w$]*)`, k.src),
			param(`\b`+k.obj+`\[\s*{Q}(?P<name>{S}){Q}\s*\]`, k.src),
			param(`\{(?P<names>[^{}]*)\}\s*=\s*`+k.obj+`\b`, k.src),
		)
	}
	return out
}

// javaAnnotated builds patterns for an annotated handler parameter in both
// Java (Type name) and Kotlin (name: Type) order.
func javaAnnotated(annotation string, src domain.ParamSource, required bool) []paramPattern {
	head := `@` + annotation + `(?:\((?P<args>[^)]*)\))?\s+(?:@\w+(?:\([^)]*\))?\s+)*`
	return []paramPattern{
		{re: compile(head + `(?:final\s+)?(?P<type>[\w.]+(?:<[^>]*>)?(?:\[\])?)\s+(?P<name>\w+)`), source: src, required: required},
		{re: compile(head + `(?P<name>\w+)\s*:\s*(?P<type>[\w.]+(?:<[^>]*>)?\??)`), source: src, required: required},
	}
}

// jaxrsParam matches a JAX-RS parameter annotation with an optional
// @DefaultValue on either side.
func jaxrsParam(annotation string, src domain.ParamSource, required bool) paramPattern {
	def := `(?:@DefaultValue\(\s*"(?P<default>[^"]*)"\s*\)\s*)?`
	return paramPattern{
		re:       compile(def + `@` + annotation + `\(\s*"(?P<name>[^"]*)"\s*\)\s*` + def + `(?:final\s+)?(?P<type>[\w.]+(?:<[^>]*>)?)`),
		source:   src,
		required: required,
	}
}

// aspnetParam matches [FromX] and [FromX(Name = "n")] parameters.
func aspnetParam(attr string, src domain.ParamSource, required bool) paramPattern {
	return paramPattern{
		re:       compile(`\[` + attr + `(?:\(\s*Name\s*=\s*"(?P<name>[^"]*)"\s*\))?\]\s*(?P<type>[\w.<>?\[\]]+)\s+(?P<name>\w+)`),
		source:   src,
		required: required,
	}
}

// fastapiMarker matches a FastAPI parameter whose default is a marker call,
// in both the plain and the Annotated spelling.
func fastapiMarker(marker string, src domain.ParamSource, typ domain.ParamType) []paramPattern {
	def := `(?:\(\s*(?:(?:default\s*=\s*)?(?P<default>[^,()=]*?)\s*[,)])?)?`
	return []paramPattern{
		{re: compile(`(?P<name>[A-Za-z_]\w*)\s*:\s*(?P<type>[^=,()]+?)\s*=\s*` + marker + def), source: src, typ: typ, requiredNoDefault: true},
		{re: compile(`(?P<name>[A-Za-z_]\w*)\s*:\s*Annotated\[\s*(?P<type>[^,\]]+?)\s*,\s*` + marker + `\(`), source: src, typ: typ, requiredNoDefault: true},
	}
}

func concat(groups ...[]paramPattern) []paramPattern {
	var out []paramPattern
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	javascript = []string{"javascript", "typescript"}
	python     = []string{"python"}
	jvm        = []string{"java", "kotlin"}
	php        = []string{"php"}
	ruby       = []string{"ruby"}
	rust       = []string{"rust"}
)

var pythonWindow = struct {
	start, end, signature *regexp.Regexp
}{
	start:     regexp.MustCompile(`\bdef\s+\w+\s*\(`),
	end:       regexp.MustCompile(`\n[^\s#)]`),
	signature: regexp.MustCompile(`def\s+\w+\s*\((?P<sig>(?:[^()]|\([^()]*\))*)\)`),
}

var graphqlParams = domain.Parameters{
	{Name: "query", Type: domain.TypeString, Source: domain.SourceBody, Required: true},
	{Name: "variables", Type: domain.TypeObject, Source: domain.SourceBody},
	{Name: "operationName", Type: domain.TypeString, Source: domain.SourceBody},
}

var railsResource = "/:id"

// genericFramework is chosen when no row wins.
var genericFramework = &Framework{
	Name: "generic",
	routes: []routePattern{
		route(`\.(?P<method>{M})\(\s*{Q}(?P<path>/{S}){Q}`),
		route(`@(?P<method>Get|Post|Put|Delete|Patch)(?:Mapping)?\(\s*{Q}(?P<path>{S}){Q}`),
		route(`(?m)^\s*(?P<method>{M})\s+{Q}(?P<path>/{S}){Q}`),
	},
	params: []paramPattern{
		param(`\bparams\.(?P<name>[A-Za-z_]\w*)`, domain.SourcePath),
		param(`\bquery\.(?P<name>[A-Za-z_]\w*)`, domain.SourceQuery),
		param(`\bbody\.(?P<name>[A-Za-z_]\w*)`, domain.SourceBody),
		headerParam(`\bheaders\[\s*{Q}(?P<name>{S}){Q}\s*\]`),
	},
}

// frameworks is the detection table. Adding a framework means adding a row.
var frameworks = []*Framework{
	{
		Name:      "express",
		languages: javascript,
		indicators: []indicator{
			{"require('express')", 3}, {`require("express")`, 3}, {"from 'express'", 3}, {`from "express"`, 3},
			{"express()", 2}, {"express.router", 2}, {"app.use(", 1}, {"res.json(", 1}, {"res.send(", 1},
		},
		routes: []routePattern{
			route(`\b(?:app|api|server|router|routes?|\w*Router|\w*Routes)\.(?P<method>{M})\(\s*{Q}(?P<path>/{S}){Q}`),
		},
		params: concat(
			jsAccessors(`req\.params`, `req\.query`, `req\.body`, `req\.headers`),
			[]paramPattern{
				headerParam(`\breq\.(?:get|header)\(\s*{Q}(?P<name>{S}){Q}`),
				param(`\breq\.cookies\.(?P<name>\w+)`, domain.SourceCookie),
				fileParam(`\bupload\.single\(\s*{Q}(?P<name>{S}){Q}`),
			},
		),
	},
	{
		Name:      "koa",
		languages: javascript,
		indicators: []indicator{
			{"require('koa')", 3}, {"from 'koa'", 3}, {"koa-router", 3}, {"@koa/router", 3},
			{"new koa(", 2}, {"ctx.body", 1}, {"ctx.request", 1},
		},
		routes: []routePattern{
			route(`\b(?:router|api|routes?|\w*Router)\.(?P<method>{M})\(\s*{Q}(?P<path>/{S}){Q}`),
		},
		params: concat(
			jsAccessors(`ctx\.params`, `ctx\.(?:request\.)?query`, `ctx\.request\.body`, `ctx\.(?:request\.)?headers`),
			[]paramPattern{
				headerParam(`\bctx\.get\(\s*{Q}(?P<name>{S}){Q}`),
				param(`\bctx\.cookies\.get\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceCookie),
			},
		),
	},
	{
		Name:      "fastify",
		languages: javascript,
		indicators: []indicator{
			{"require('fastify')", 3}, {"from 'fastify'", 3}, {"fastify(", 2}, {"fastify.register", 1},
			{"reply.send", 1}, {"reply.code", 1},
		},
		routes: []routePattern{
			route(`\b(?:fastify|app|server|instance)\.(?P<method>{M})\(\s*{Q}(?P<path>/{S}){Q}`),
			route(`\.route\(\s*\{[^}]*?method\s*:\s*{Q}(?P<method>\w+){Q}[^}]*?url\s*:\s*{Q}(?P<path>{S}){Q}`),
			route(`\.route\(\s*\{[^}]*?url\s*:\s*{Q}(?P<path>{S}){Q}[^}]*?method\s*:\s*{Q}(?P<method>\w+){Q}`),
		},
		params: jsAccessors(`request\.params`, `request\.query`, `request\.body`, `request\.headers`),
	},
	{
		Name:      "nestjs",
		languages: javascript,
		indicators: []indicator{
			{"@nestjs/common", 3}, {"@controller(", 2}, {"@injectable(", 1}, {"@module(", 1},
		},
		prefixes: compileAll(`@Controller\(\s*{Q}(?P<prefix>{S}){Q}`),
		routes: []routePattern{
			route(`@(?P<method>Get|Post|Put|Delete|Patch)\(\s*(?:{Q}(?P<path>{S}){Q})?\s*\)`),
		},
		params: []paramPattern{
			requiredParam(`@Param\(\s*{Q}(?P<name>{S}){Q}[^)]*\)(?:\s*\w+\s*:\s*(?P<type>[\w\[\]<>]+))?`, domain.SourcePath),
			param(`@Query\(\s*{Q}(?P<name>{S}){Q}[^)]*\)(?:\s*\w+\s*\??:\s*(?P<type>[\w\[\]<>]+))?`, domain.SourceQuery),
			param(`@Query\(\s*\)\s*(?P<name>\w+)\s*:\s*(?P<type>[\w\[\]<>]+)`, domain.SourceQuery),
			headerParam(`@Headers\(\s*{Q}(?P<name>{S}){Q}`),
			requiredParam(`@Body\(\s*\)\s*(?P<name>\w+)\s*:\s*(?P<type>[\w\[\]<>]+)`, domain.SourceBody),
			param(`@Body\(\s*{Q}(?P<name>{S}){Q}[^)]*\)(?:\s*\w+\s*\??:\s*(?P<type>[\w\[\]<>]+))?`, domain.SourceBody),
			fileParam(`@UploadedFile\([^)]*\)\s*(?P<name>\w+)`),
		},
	},
	{
		Name:      "hapi",
		languages: javascript,
		indicators: []indicator{
			{"@hapi/hapi", 3}, {"server.route(", 2}, {"hapi.server(", 2}, {"h.response(", 1},
		},
		routes: []routePattern{
			route(`\.route\(\s*\{[^}]*?method\s*:\s*{Q}(?P<method>\w+){Q}[^}]*?path\s*:\s*{Q}(?P<path>{S}){Q}`),
			route(`\.route\(\s*\{[^}]*?path\s*:\s*{Q}(?P<path>{S}){Q}[^}]*?method\s*:\s*{Q}(?P<method>\w+){Q}`),
		},
		params: jsAccessors(`request\.params`, `request\.query`, `request\.payload`, `request\.headers`),
	},
	{
		Name:      "browser",
		languages: javascript,
		indicators: []indicator{
			{"fetch(", 2}, {"axios.", 2}, {"$.ajax(", 2}, {"xmlhttprequest", 2},
			{"document.", 1}, {"window.", 1}, {"localstorage", 1},
		},
		routes: []routePattern{
			route(`\bfetch\(\s*{Q}(?P<path>{S}){Q}\s*(?:,\s*\{[^}]*?method\s*:\s*{Q}(?P<method>\w+){Q})?`),
			route(`\baxios\.(?P<method>{M})\(\s*{Q}(?P<path>{S}){Q}`),
			route(`\$\.ajax\(\s*\{[^}]*?url\s*:\s*{Q}(?P<path>{S}){Q}(?:[^}]*?(?:type|method)\s*:\s*{Q}(?P<method>\w+){Q})?`),
			route(`\.open\(\s*{Q}(?P<method>\w+){Q}\s*,\s*{Q}(?P<path>{S}){Q}`),
		},
		params: []paramPattern{
			param(`JSON\.stringify\(\s*\{(?P<names>[^{}]*)\}`, domain.SourceBody),
			param(`\bparams\s*:\s*\{(?P<names>[^{}]*)\}`, domain.SourceQuery),
			param(`\bheaders\s*:\s*\{(?P<names>[^{}]*)\}`, domain.SourceHeader),
		},
	},
	{
		Name:      "fastapi",
		languages: python,
		indicators: []indicator{
			{"from fastapi", 3}, {"import fastapi", 3}, {"fastapi(", 2}, {"apirouter(", 2},
			{"depends(", 1}, {"pydantic", 1},
		},
		prefixes: compileAll(`APIRouter\([^)]*?prefix\s*=\s*{Q}(?P<prefix>{S}){Q}`),
		routes: []routePattern{
			route(`@\w+\.(?P<method>{M})\(\s*{Q}(?P<path>{S}){Q}`),
			route(`@\w+\.api_route\(\s*{Q}(?P<path>{S}){Q}[^)]*?methods\s*=\s*\[(?P<methods>[^\]]*)\]`),
		},
		params: concat(
			fastapiMarker(`Path`, domain.SourcePath, ""),
			fastapiMarker(`Query`, domain.SourceQuery, ""),
			fastapiMarker(`Header`, domain.SourceHeader, ""),
			fastapiMarker(`Cookie`, domain.SourceCookie, ""),
			fastapiMarker(`File`, domain.SourceForm, domain.TypeFile),
			fastapiMarker(`Form`, domain.SourceForm, ""),
			fastapiMarker(`Body`, domain.SourceBody, ""),
			[]paramPattern{
				{re: compile(`(?P<name>[A-Za-z_]\w*)\s*:\s*UploadFile\b`), source: domain.SourceForm, typ: domain.TypeFile, required: true},
				{
					re:                compile(`^\s*(?P<name>[A-Za-z_]\w*)\s*(?::\s*(?P<type>[^=]+?))?\s*(?:=\s*(?P<default>.+?))?\s*$`),
					requiredNoDefault: true,
					signature:         true,
				},
			},
		),
		handlerStart: pythonWindow.start,
		handlerEnd:   pythonWindow.end,
		signature:    pythonWindow.signature,
	},
	{
		Name:      "flask",
		languages: python,
		indicators: []indicator{
			{"from flask", 3}, {"import flask", 3}, {"flask(__name__)", 2}, {"blueprint(", 2},
			{"request.args", 1}, {"jsonify(", 1},
		},
		prefixes: compileAll(`Blueprint\([^)]*?url_prefix\s*=\s*{Q}(?P<prefix>{S}){Q}`),
		routes: []routePattern{
			route(`@\w+\.route\(\s*{Q}(?P<path>{S}){Q}(?:[^)]*?methods\s*=\s*[\[(](?P<methods>[^\])]*)[\])])?`),
			route(`@\w+\.(?P<method>{M})\(\s*{Q}(?P<path>{S}){Q}`),
		},
		params: []paramPattern{
			param(`\brequest\.args\.get\(\s*{Q}(?P<name>{S}){Q}(?:\s*,\s*(?:default\s*=\s*)?(?P<default>[^,)=]+?))?(?:\s*,\s*type\s*=\s*(?P<type>\w+))?\s*\)`, domain.SourceQuery),
			requiredParam(`\brequest\.args\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceQuery),
			param(`\brequest\.form\.get\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceForm),
			requiredParam(`\brequest\.form\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceForm),
			fileParam(`\brequest\.files(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`),
			requiredParam(`\brequest\.(?:json|get_json\(\))\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceBody),
			param(`\brequest\.(?:json|get_json\(\))\.get\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceBody),
			headerParam(`\brequest\.headers(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`),
			param(`\brequest\.cookies(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`, domain.SourceCookie),
		},
		handlerStart: pythonWindow.start,
		handlerEnd:   pythonWindow.end,
	},
	{
		Name:      "django",
		languages: python,
		indicators: []indicator{
			{"from django", 3}, {"django.urls", 2}, {"urlpatterns", 2}, {"@api_view", 2},
			{"httpresponse", 1}, {"re_path(", 1},
		},
		routes: []routePattern{
			route(`\bpath\(\s*{Q}(?P<path>{S}){Q}`),
		},
		params: []paramPattern{
			param(`\brequest\.(?:GET|query_params)\.get\(\s*{Q}(?P<name>{S}){Q}(?:\s*,\s*(?P<default>[^,)]+?))?\s*\)`, domain.SourceQuery),
			requiredParam(`\brequest\.(?:GET|query_params)\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceQuery),
			param(`\brequest\.POST(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`, domain.SourceForm),
			param(`\brequest\.data(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`, domain.SourceBody),
			fileParam(`\brequest\.FILES(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`),
			headerParam(`\brequest\.headers(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`),
			param(`\brequest\.COOKIES(?:\.get\(|\[)\s*{Q}(?P<name>{S}){Q}`, domain.SourceCookie),
		},
	},
	{
		Name:      "spring",
		languages: jvm,
		indicators: []indicator{
			{"org.springframework", 3}, {"@restcontroller", 3}, {"@springbootapplication", 2},
			{"@getmapping", 2}, {"@postmapping", 2}, {"@requestmapping", 1},
		},
		prefixes: compileAll(`@RequestMapping\(\s*(?:(?:value|path)\s*=\s*)?[\[{]?\s*"(?P<prefix>[^"]*)"[^)]*\)(?:\s*@\w+(?:\([^)]*\))?)*\s*(?:(?:public|final|abstract|open|internal)\s+)*class\b`),
		routes: []routePattern{
			route(`@(?P<method>Get|Post|Put|Delete|Patch)Mapping\b(?:\(\s*(?:(?:value|path)\s*=\s*)?[\[{]?\s*"(?P<path>[^"]*)")?`),
			route(`@RequestMapping\(\s*(?:(?:value|path)\s*=\s*)?[\[{]?\s*"(?P<path>[^"]*)"[^)]*?method\s*=\s*[\[{]?\s*(?:RequestMethod\.)?(?P<method>\w+)`),
			route(`@RequestMapping\(\s*method\s*=\s*[\[{]?\s*(?:RequestMethod\.)?(?P<method>\w+)[^)]*?(?:value|path)\s*=\s*[\[{]?\s*"(?P<path>[^"]*)"`),
		},
		params: concat(
			javaAnnotated(`PathVariable`, domain.SourcePath, true),
			javaAnnotated(`RequestParam`, domain.SourceQuery, true),
			javaAnnotated(`RequestHeader`, domain.SourceHeader, true),
			javaAnnotated(`CookieValue`, domain.SourceCookie, true),
			javaAnnotated(`RequestBody`, domain.SourceBody, true),
			javaAnnotated(`RequestPart`, domain.SourceForm, true),
		),
	},
	{
		Name:      "jaxrs",
		languages: jvm,
		indicators: []indicator{
			{"javax.ws.rs", 3}, {"jakarta.ws.rs", 3}, {"@path(", 2}, {"@produces", 1},
			{"@consumes", 1}, {"@queryparam", 1},
		},
		prefixes: compileAll(`@Path\(\s*"(?P<prefix>[^"]*)"\s*\)(?:\s*@\w+(?:\([^)]*\))?)*\s*(?:(?:public|final|abstract)\s+)*class\b`),
		routes: []routePattern{
			route(`@(?P<method>GET|POST|PUT|DELETE|PATCH)\b\s*(?:@(?:Produces|Consumes)\([^)]*\)\s*)*@Path\(\s*"(?P<path>[^"]*)"\s*\)`),
			route(`@Path\(\s*"(?P<path>[^"]*)"\s*\)\s*(?:@(?:Produces|Consumes)\([^)]*\)\s*)*@(?P<method>GET|POST|PUT|DELETE|PATCH)\b`),
			route(`@(?P<method>GET|POST|PUT|DELETE|PATCH)\b`),
		},
		params: []paramPattern{
			jaxrsParam(`PathParam`, domain.SourcePath, true),
			jaxrsParam(`QueryParam`, domain.SourceQuery, false),
			jaxrsParam(`HeaderParam`, domain.SourceHeader, false),
			jaxrsParam(`CookieParam`, domain.SourceCookie, false),
			jaxrsParam(`FormParam`, domain.SourceForm, false),
		},
	},
	{
		Name:      "aspnet",
		languages: []string{"csharp"},
		indicators: []indicator{
			{"microsoft.aspnetcore", 3}, {"[apicontroller]", 3}, {"controllerbase", 2},
			{"app.map", 2}, {"[http", 1},
		},
		prefixes: compileAll(`\[Route\(\s*"(?P<prefix>[^"]*)"\s*\)\](?:\s*\[[^\]]*\])*\s*(?:(?:public|sealed|partial|abstract)\s+)*class\s+(?P<class>\w+)`),
		routes: []routePattern{
			route(`\[Http(?P<method>Get|Post|Put|Delete|Patch)(?:\(\s*"(?P<path>[^"]*)"[^)]*\))?\]`),
			route(`\.Map(?P<method>Get|Post|Put|Delete|Patch)\(\s*"(?P<path>[^"]*)"`),
		},
		params: []paramPattern{
			aspnetParam(`FromRoute`, domain.SourcePath, true),
			aspnetParam(`FromQuery`, domain.SourceQuery, false),
			aspnetParam(`FromHeader`, domain.SourceHeader, false),
			aspnetParam(`FromBody`, domain.SourceBody, true),
			aspnetParam(`FromForm`, domain.SourceForm, false),
			fileParam(`\bIFormFile\s+(?P<name>\w+)`),
		},
	},
	{
		Name:      "laravel",
		languages: php,
		indicators: []indicator{
			{`illuminate\`, 3}, {"route::", 3}, {"->middleware(", 1}, {"$request->", 1},
		},
		prefixes: compileAll(`Route::prefix\(\s*{Q}(?P<prefix>{S}){Q}\s*\)`),
		routes: []routePattern{
			route(`Route::(?P<method>{M})\(\s*{Q}(?P<path>{S}){Q}`),
			route(`Route::match\(\s*\[(?P<methods>[^\]]*)\]\s*,\s*{Q}(?P<path>{S}){Q}`),
			{re: compile(`Route::any\(\s*{Q}(?P<path>{S}){Q}`), all: true},
			{re: compile(`Route::(?:api)?[Rr]esource\(\s*{Q}(?P<path>{S}){Q}`), member: "/{id}"},
		},
		params: []paramPattern{
			param(`\$request->query\(\s*{Q}(?P<name>{S}){Q}(?:\s*,\s*(?P<default>[^)]+?))?\s*\)`, domain.SourceQuery),
			param(`\$request->(?:input|get|post|string|integer|boolean)\(\s*{Q}(?P<name>{S}){Q}(?:\s*,\s*(?P<default>[^)]+?))?\s*\)`, ""),
			headerParam(`\$request->header\(\s*{Q}(?P<name>{S}){Q}`),
			param(`\$request->cookie\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceCookie),
			fileParam(`\$request->file\(\s*{Q}(?P<name>{S}){Q}`),
		},
	},
	{
		Name:      "slim",
		languages: php,
		indicators: []indicator{
			{`slim\`, 3}, {"appfactory::create", 3}, {"$app->", 1}, {"getparsedbody", 1},
		},
		routes: []routePattern{
			route(`\$(?:app|group|this)->(?P<method>{M})\(\s*{Q}(?P<path>{S}){Q}`),
			route(`->map\(\s*\[(?P<methods>[^\]]*)\]\s*,\s*{Q}(?P<path>{S}){Q}`),
		},
		params: []paramPattern{
			requiredParam(`\$args\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourcePath),
			param(`getQueryParams\(\)\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceQuery),
			param(`getParsedBody\(\)\[\s*{Q}(?P<name>{S}){Q}\s*\]`, domain.SourceBody),
			headerParam(`getHeaderLine\(\s*{Q}(?P<name>{S}){Q}`),
		},
	},
	{
		Name:      "symfony",
		languages: php,
		indicators: []indicator{
			{`symfony\component`, 3}, {"#[route(", 3}, {"@route(", 2}, {"abstractcontroller", 2},
		},
		prefixes: compileAll(`#\[Route\(\s*{Q}(?P<prefix>{S}){Q}[^\]]*\]\s*(?:(?:final|abstract)\s+)*class\b`),
		routes: []routePattern{
			route(`#\[Route\(\s*{Q}(?P<path>{S}){Q}(?:[^\]]*?methods\s*:\s*\[(?P<methods>[^\]]*)\])?`),
			route(`@Route\(\s*"(?P<path>[^"]*)"(?:[^)]*?methods\s*=\s*\{(?P<methods>[^}]*)\})?`),
		},
		params: []paramPattern{
			param(`\$request->query->get\(\s*{Q}(?P<name>{S}){Q}(?:\s*,\s*(?P<default>[^)]+?))?\s*\)`, domain.SourceQuery),
			param(`\$request->request->get\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceForm),
			headerParam(`\$request->headers->get\(\s*{Q}(?P<name>{S}){Q}`),
			param(`\$request->cookies->get\(\s*{Q}(?P<name>{S}){Q}`, domain.SourceCookie),
			fileParam(`\$request->files->get\(\s*{Q}(?P<name>{S}){Q}`),
		},
	},
	{
		Name:      "rails",
		languages: ruby,
		indicators: []indicator{
			{"rails.application.routes", 3}, {"resources :", 2}, {"actioncontroller", 2},
			{"namespace :", 1}, {"params.require", 1},
		},
		prefixes: compileAll(`\bnamespace\s+:(?P<prefix>\w+)`),
		routes: []routePattern{
			route(`(?m)^\s*(?P<method>{M})\s+{Q}(?P<path>{S}){Q}`),
			{re: compile(`\bresources\s+:(?P<path>\w+)`), member: railsResource},
		},
		params: []paramPattern{
			param(`\bparams\[:(?P<name>\w+)\]`, ""),
			param(`\bparams\.require\(:\w+\)\.permit\((?P<names>[^)]*)\)`, domain.SourceBody),
			headerParam(`\brequest\.headers\[\s*{Q}(?P<name>{S}){Q}\s*\]`),
			param(`\bcookies\[:(?P<name>\w+)\]`, domain.SourceCookie),
		},
	},
	{
		Name:      "sinatra",
		languages: ruby,
		indicators: []indicator{
			{"require 'sinatra'", 3}, {`require "sinatra"`, 3}, {"sinatra::base", 3}, {"sinatra", 1},
		},
		routes: []routePattern{
			route(`(?m)^\s*(?P<method>{M})\s+{Q}(?P<path>{S}){Q}\s*(?:do|\{)`),
		},
		params: []paramPattern{
			param(`\bparams\[:(?P<name>\w+)\]`, ""),
			param(`\bparams\[\s*{Q}(?P<name>\w+){Q}\s*\]`, ""),
			headerParam(`\brequest\.env\[\s*{Q}HTTP_(?P<name>\w+){Q}\s*\]`),
		},
	},
	{
		Name:      "actix",
		languages: rust,
		indicators: []indicator{
			{"actix_web", 3}, {"httpserver::new", 2}, {"web::", 1}, {"httpresponse::", 1},
		},
		prefixes: compileAll(`web::scope\(\s*"(?P<prefix>[^"]*)"`),
		routes: []routePattern{
			route(`#\[(?P<method>get|post|put|delete|patch)\(\s*"(?P<path>[^"]*)"`),
			route(`\.route\(\s*"(?P<path>[^"]*)"\s*,\s*web::(?P<method>get|post|put|delete|patch)\(\)`),
			route(`web::resource\(\s*"(?P<path>[^"]*)"\s*\)\s*\.route\(\s*web::(?P<method>get|post|put|delete|patch)\(\)`),
		},
		params: []paramPattern{
			param(`(?P<name>\w+)\s*:\s*web::Query<(?P<type>[\w<>:]+)>`, domain.SourceQuery),
			{re: compile(`(?P<name>\w+)\s*:\s*web::Json<(?P<type>[\w<>:]+)>`), source: domain.SourceBody, required: true},
			param(`(?P<name>\w+)\s*:\s*web::Form<(?P<type>[\w<>:]+)>`, domain.SourceForm),
			headerParam(`\.headers\(\)\.get\(\s*"(?P<name>[^"]*)"`),
		},
	},
	{
		Name:      "rocket",
		languages: rust,
		indicators: []indicator{
			{"rocket::", 3}, {"#[launch]", 3}, {"routes![", 2}, {"#[macro_use] extern crate rocket", 3},
		},
		routes: []routePattern{
			route(`#\[(?P<method>get|post|put|delete|patch)\(\s*"(?P<path>[^"]*)"`),
		},
		params: []paramPattern{
			requiredParam(`\bdata\s*=\s*"<(?P<name>\w+)>"`, domain.SourceBody),
			{re: compile(`(?P<name>\w+)\s*:\s*Json<(?P<type>[\w<>:]+)>`), source: domain.SourceBody, required: true},
			{re: compile(`(?P<name>\w+)\s*:\s*Form<(?P<type>[\w<>:]+)>`), source: domain.SourceForm, required: true},
		},
	},
	{
		Name:      "ktor",
		languages: []string{"kotlin"},
		indicators: []indicator{
			{"io.ktor", 3}, {"routing {", 2}, {"call.respond", 2}, {"call.parameters", 1},
		},
		routes: []routePattern{
			route(`\b(?P<method>get|post|put|delete|patch)\s*(?:<[^>]*>\s*)?\(\s*"(?P<path>[^"]*)"\s*\)\s*\{`),
		},
		params: []paramPattern{
			requiredParam(`\bcall\.parameters\[\s*"(?P<name>[^"]*)"\s*\]`, domain.SourcePath),
			param(`\bcall\.request\.queryParameters\[\s*"(?P<name>[^"]*)"\s*\]`, domain.SourceQuery),
			headerParam(`\bcall\.request\.headers\[\s*"(?P<name>[^"]*)"\s*\]`),
			{re: compile(`\bcall\.receive<(?P<type>[\w.]+)>\(\)`), source: domain.SourceBody, name: "body", required: true},
		},
	},
	{
		Name:      "vapor",
		languages: []string{"swift"},
		indicators: []indicator{
			{"import vapor", 3}, {"req.parameters", 2}, {"req.content", 2}, {"routesbuilder", 2},
		},
		prefixes: compileAll(`\.grouped\(\s*"(?P<prefix>[^"]*)"`),
		routes: []routePattern{
			route(`\.(?P<method>get|post|put|delete|patch)\((?P<segments>\s*"[^"]*"(?:\s*,\s*"[^"]*")*)`),
		},
		params: []paramPattern{
			requiredParam(`\breq\.parameters\.get\(\s*"(?P<name>[^"]*)"(?:\s*,\s*as:\s*(?P<type>\w+)\.self)?`, domain.SourcePath),
			param(`\breq\.query\[\s*(?P<type>\w+)\.self\s*,\s*at:\s*"(?P<name>[^"]*)"\s*\]`, domain.SourceQuery),
			param(`\breq\.query\[\s*"(?P<name>[^"]*)"\s*\]`, domain.SourceQuery),
			headerParam(`\breq\.headers\.first\(name:\s*"(?P<name>[^"]*)"\)`),
			{re: compile(`\breq\.content\.decode\((?P<type>\w+)\.self\)`), source: domain.SourceBody, name: "body", required: true},
		},
	},
	{
		Name:      "graphql",
		secondary: true,
		indicators: []indicator{
			{"type query", 3}, {"type mutation", 3}, {"gql`", 2}, {"typedefs", 2},
			{"apollo-server", 2}, {"graphql", 1},
		},
		routes: []routePattern{
			{re: compile(`\b(?:type|extend\s+type)\s+(?P<kind>Query|Mutation|Subscription)\s*\{(?P<fields>[^}]*)\}`), method: domain.MethodPost, path: "/graphql", fixed: graphqlParams},
		},
	},
}
