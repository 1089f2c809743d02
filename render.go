package ejs

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin/render"
)

var _ render.HTMLRender = (*HTMLRender)(nil)

// HTMLRender makes an Engine usable as gin's HTML renderer. Template names
// are resolved against the configured views directory.
type HTMLRender struct {
	e    *Engine
	dir  string
	opts *CompileOptions
}

// NewHTMLRender creates a gin-compatible renderer serving templates from
// dir. The options apply to every render; enable Cache for production use.
func NewHTMLRender(e *Engine, dir string, opts *CompileOptions) *HTMLRender {
	return &HTMLRender{e: e, dir: dir, opts: opts}
}

// Instance returns a render.Render for one response.
func (h *HTMLRender) Instance(name string, data any) render.Render {
	return &Render{e: h.e, path: path.Join(h.dir, name), data: data, opts: h.opts}
}

// Render renders one template with data and writes it to the response.
type Render struct {
	e    *Engine
	path string
	data any
	opts *CompileOptions
}

// Render writes the rendered template to w.
func (r *Render) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	out, err := r.e.RenderFile(r.path, r.data, r.opts)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(out))
	return err
}

// WriteContentType writes an HTML content type to the response header if not set.
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}
