package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"strconv"
	"time"
)

//go:embed assets/index.html assets/app.js assets/style.css
var embeddedAssets embed.FS

const (
	baseHrefPlaceholder  = "<!-- BASE_HREF -->"
	maxUploadPlaceholder = "MAX_UPLOAD_MB"
)

func staticAssets() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// indexPage is index.html with the deployment placeholders filled in.
type indexPage struct {
	body    []byte
	modTime time.Time
	err     error
}

func newIndexPage(assets fs.FS, baseHref string, maxUploadMB int) indexPage {
	data, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		return indexPage{err: fmt.Errorf("read index: %w", err)}
	}
	page := indexPage{}
	if stat, err := fs.Stat(assets, "index.html"); err == nil {
		page.modTime = stat.ModTime()
	}
	base := ""
	if baseHref != "" {
		base = fmt.Sprintf(`<base href="%s" />`, html.EscapeString(baseHref))
	}
	data = bytes.ReplaceAll(data, []byte(baseHrefPlaceholder), []byte(base))
	page.body = bytes.ReplaceAll(data, []byte(maxUploadPlaceholder), []byte(strconv.Itoa(maxUploadMB)))
	return page
}

func (p indexPage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if p.err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "index.html", p.modTime, bytes.NewReader(p.body))
}
