package pipeline

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
)

// Handler turns one request into processed content.
type Handler interface {
	Handle(ctx context.Context, req Request, progress *Progress) (*models.ProcessedContent, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request, progress *Progress) (*models.ProcessedContent, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request, progress *Progress) (*models.ProcessedContent, error) {
	return f(ctx, req, progress)
}

// Route pairs a predicate with the handler that serves matching requests.
type Route struct {
	Name    string
	Match   func(Request) bool
	Handler Handler
}

// Registry dispatches a request to the first route whose predicate matches.
type Registry struct {
	routes []Route
}

func NewRegistry(routes ...Route) *Registry {
	return &Registry{routes: append([]Route(nil), routes...)}
}

// Register appends a route; earlier routes take precedence.
func (r *Registry) Register(name string, match func(Request) bool, h Handler) {
	r.routes = append(r.routes, Route{Name: name, Match: match, Handler: h})
}

// Lookup returns the first matching route.
func (r *Registry) Lookup(req Request) (Route, bool) {
	for _, rt := range r.routes {
		if rt.Match == nil || rt.Match(req) {
			return rt, true
		}
	}
	return Route{}, false
}

// Names lists the routes in precedence order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.Name
	}
	return names
}

// IsPDFRequest matches requests that carry PDF data, declare a PDF content
// type, or point at a .pdf path.
func IsPDFRequest(req Request) bool {
	if len(req.PDFPages) > 0 || pdf.IsPDF(req.PDF) {
		return true
	}
	if ct := strings.ToLower(req.ContentType); strings.HasPrefix(ct, "application/pdf") {
		return true
	}
	if req.URL == "" || req.HTML != "" || req.Document != nil {
		return false
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".pdf")
}

// IsWebRequest matches everything; it is registered last.
func IsWebRequest(Request) bool { return true }
