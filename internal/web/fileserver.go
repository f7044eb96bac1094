package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

const (
	staticAssetsPath = "assets/static"
	staticURLPrefix  = "/static"
)

// FileServer serves the contact form stylesheet and script.
type FileServer struct {
	assetsFS fs.FS
	log      logger.Logger
}

func NewFileServer(assetsFS fs.FS, log logger.Logger) *FileServer {
	return &FileServer{
		assetsFS: assetsFS,
		log:      log,
	}
}

func (s *FileServer) RegisterRoutes(r chi.Router) {
	s.log.Infof("Registering file server: %s -> %s", staticURLPrefix, staticAssetsPath)

	staticFS, err := fs.Sub(s.assetsFS, staticAssetsPath)
	if err != nil {
		s.log.Errorf("Error creating static files sub-filesystem: %v", err)
		return
	}

	handler := http.StripPrefix(staticURLPrefix+"/", http.FileServer(http.FS(staticFS)))
	r.Handle(staticURLPrefix+"/*", cacheControl(handler))
}

func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
