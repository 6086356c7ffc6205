package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/julienschmidt/httprouter"
)

//go:embed static
var staticFS embed.FS

type (
	staticAsset struct {
		body     []byte
		mimeType string
		etag     string
	}
)

var contentTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "application/javascript; charset=utf-8",
	".ico": "image/x-icon",
	".png": "image/png",
}

func loadStaticAssets() (map[string]staticAsset, error) {
	assets := make(map[string]staticAsset)
	err := fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := staticFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("unable to load embedded asset %v, cause %w", p, err)
		}
		mt := contentTypes[path.Ext(p)]
		if mt == "" {
			mt = "application/octet-stream"
		}
		assets[path.Base(p)] = staticAsset{
			body:     body,
			mimeType: mt,
			etag:     fmt.Sprintf(`"%v"`, strconv.FormatUint(xxhash.Sum64(body), 16)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// serveStatic answers /static/*asset with embedded content. Assets never
// change while the process runs, so the ETag is computed once.
func serveStatic(assets map[string]staticAsset) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		asset, ok := assets[path.Base(params.ByName("asset"))]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("If-None-Match") == asset.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", asset.mimeType)
		w.Header().Set("ETag", asset.etag)
		w.Header().Set("Content-Length", strconv.Itoa(len(asset.body)))
		w.WriteHeader(http.StatusOK)
		w.Write(asset.body)
	}
}
