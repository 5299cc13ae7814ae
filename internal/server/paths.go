package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"city-distance/internal/models"
	"city-distance/internal/pathfinder"

	"github.com/gin-gonic/gin"
)

type cachedGraph struct {
	modTime time.Time
	size    int64
	graph   *pathfinder.Graph
}

// graphCache keeps one parsed graph per distance table until the file changes.
type graphCache struct {
	mu      sync.Mutex
	entries map[string]cachedGraph
}

func newGraphCache() *graphCache {
	return &graphCache{entries: make(map[string]cachedGraph)}
}

func (c *graphCache) get(path, sheet string) (*pathfinder.Graph, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &models.IOError{Op: "open", Path: path, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.modTime.Equal(fi.ModTime()) && e.size == fi.Size() {
		return e.graph, nil
	}

	g, err := pathfinder.Load(path, sheet)
	if err != nil {
		return nil, err
	}
	c.entries[path] = cachedGraph{modTime: fi.ModTime(), size: fi.Size(), graph: g}
	return g, nil
}

type pathNode struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// resultPath maps the optional result query to a table on disk: a file of the
// output directory, or the configured output path when empty.
func (s *Server) resultPath(name string) (string, bool) {
	if name == "" {
		return s.cfg.OutputPath, true
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return filepath.Join(s.cfg.Server.OutputDir, name), true
}

func (s *Server) findPath(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "start and end are required", "path": []pathNode{}})
		return
	}

	table, ok := s.resultPath(c.Query("result"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid result name", "path": []pathNode{}})
		return
	}

	g, err := s.graphs.get(table, s.cfg.OutputSheet)
	if err != nil {
		var ioErr *models.IOError
		if errors.As(err, &ioErr) && errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "result not found", "path": []pathNode{}})
			return
		}
		s.logger.Errorf("loading distance table %s: %v", table, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error(), "path": []pathNode{}})
		return
	}

	p, err := g.Find(start, end)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error(), "path": []pathNode{}})
		return
	}

	nodes := make([]pathNode, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = pathNode{Name: n.Name, Latitude: n.Loc.Lat, Longitude: n.Loc.Lon}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": nodes, "totalCost": p.Meters})
}
