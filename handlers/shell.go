package handlers

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// ShellHandler serves the browser application. Existing files are served as
// is; every other path gets the index document so client-side routes and deep
// links resolve.
type ShellHandler struct {
	fs    afero.Fs
	index string
}

// NewShellHandler serves files from fsys with index as the fallback document.
func NewShellHandler(fsys afero.Fs, index string) *ShellHandler {
	index = strings.TrimSpace(index)
	if index == "" {
		index = "index.html"
	}
	return &ShellHandler{fs: fsys, index: "/" + strings.TrimPrefix(index, "/")}
}

// NewShellHandlerForDir serves a read-only view of dir.
func NewShellHandlerForDir(dir, index string) *ShellHandler {
	return NewShellHandler(afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), index)
}

func (h *ShellHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if name != "/" && name != h.index {
		if info, err := h.fs.Stat(name); err == nil && !info.IsDir() {
			h.serveFile(w, r, name, info)
			return
		}
	}

	info, err := h.fs.Stat(h.index)
	if err != nil {
		log.Printf("[shell] application shell %s unavailable: %v", h.index, err)
		http.Error(w, "application shell not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	h.serveFile(w, r, h.index, info)
}

func (h *ShellHandler) serveFile(w http.ResponseWriter, r *http.Request, name string, info fs.FileInfo) {
	f, err := h.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		log.Printf("[shell] open %s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		// Sniff from content for extension-less assets.
		mt, err := mimetype.DetectReader(f)
		if err == nil {
			ctype = mt.String()
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			log.Printf("[shell] rewind %s: %v", name, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	if ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
