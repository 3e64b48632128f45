package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mnoushir/site-assistant/pkg/logger"
)

// StaticFileHandler serves the personal-site bundle dynamically without
// caching
type StaticFileHandler struct {
	staticDir string
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, logger *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		staticDir: staticDir,
		logger:    logger.Named("static-handler"),
	}
}

// ServeHTTP serves static files dynamically
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Clean the path to prevent directory traversal attacks
	path := filepath.Clean(r.URL.Path)
	path = strings.TrimPrefix(path, "/")

	// If path is empty, serve index.html
	if path == "" || path == "." {
		path = "index.html"
	}

	fullPath := filepath.Join(h.staticDir, path)

	// Ensure the file is within the static directory (security check)
	absStaticDir, err := filepath.Abs(h.staticDir)
	if err != nil {
		h.logger.Error("Failed to get absolute path for static directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		h.logger.Error("Failed to get absolute path for requested file", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if !strings.HasPrefix(absFullPath, absStaticDir) {
		h.logger.Warn("Attempted directory traversal",
			logger.String("requested_path", path),
			logger.String("full_path", absFullPath))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Check if file exists
	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			h.logger.Debug("File not found", logger.String("path", fullPath))
			http.NotFound(w, r)
			return
		}
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Don't serve directories directly
	if fileInfo.IsDir() {
		indexPath := filepath.Join(fullPath, "index.html")
		if _, err := os.Stat(indexPath); err == nil {
			fullPath = indexPath
		} else {
			h.logger.Debug("Directory listing not allowed", logger.String("path", fullPath))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	// Set headers to prevent caching (for dynamic serving)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	http.ServeFile(w, r, fullPath)
}
