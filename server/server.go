package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	db "github.com/sayden/fqsort"
	"github.com/sayden/fqsort/core"
)

var ErrOutsideRoot = errors.New("path is outside the data root")

// SortRequest asks for every file in Files to be sorted in place on the server's disk. Files are
// relative to the data root. Empty fields fall back to the server configuration.
type SortRequest struct {
	Files    []string `json:"files" binding:"required,min=1"`
	Memory   string   `json:"memory"`
	Unit     int      `json:"unit"`
	Key      string   `json:"key"`
	Selector string   `json:"selector"`
	Partial  string   `json:"partial"`
}

type SortResult struct {
	File  string      `json:"file"`
	Stats *core.Stats `json:"stats,omitempty"`
	Error string      `json:"error,omitempty"`
}

type Server struct {
	cfg    *db.Config
	fs     db.Filesystem
	root   string
	engine *gin.Engine
}

func New(cfg *db.Config, fs db.Filesystem) (*Server, error) {
	root := cfg.Server.Root
	if root == "" {
		root = db.DEFAULT_SERVER_ROOT
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error resolving data root '%s'", cfg.Server.Root), err)
	}

	s := &Server{
		cfg:    cfg,
		fs:     fs,
		root:   root,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestLogger())
	s.engine.GET("/healthz", s.Health)
	s.engine.POST("/v1/sort", s.Sort)

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.cfg.Server.Addr).Str("root", s.root).Msg("Listening")
	return s.engine.Run(s.cfg.Server.Addr)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Sort(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paths := make([]string, 0, len(req.Files))
	for _, file := range req.Files {
		p, err := s.resolve(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		paths = append(paths, p)
	}

	cfg := s.requestConfig(&req)
	sorter, err := core.NewExternalSort(cfg, s.fs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	results := make([]SortResult, 0, len(req.Files))
	for i, file := range req.Files {
		stats, err := sorter.Sort(paths[i])
		if err != nil {
			log.Err(err).Str("file", file).Msg("Sort failed")
			results = append(results, SortResult{File: file, Error: err.Error()})
			status = http.StatusUnprocessableEntity
			continue
		}

		log.Info().Str("file", file).Int("blocks", stats.Blocks).Int("records", stats.Records).
			Dur("elapsed", stats.Elapsed).Msg("Sorted")
		results = append(results, SortResult{File: file, Stats: stats})
	}

	c.JSON(status, gin.H{"results": results})
}

// resolve maps a requested file into the data root. Absolute paths are taken as relative to
// the root; any ".." element is refused.
func (s *Server) resolve(file string) (string, error) {
	for _, elem := range strings.Split(filepath.ToSlash(file), "/") {
		if elem == ".." {
			return "", errors.Join(ErrOutsideRoot, fmt.Errorf("file '%s'", file))
		}
	}

	p := filepath.Join(s.root, filepath.Clean("/"+file))
	if rel, err := filepath.Rel(s.root, p); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", errors.Join(ErrOutsideRoot, fmt.Errorf("file '%s'", file))
	}

	return p, nil
}

// requestConfig copies the server configuration and applies the request overrides on top.
func (s *Server) requestConfig(req *SortRequest) *db.Config {
	cfg := *s.cfg

	if req.Memory != "" {
		cfg.Memory = req.Memory
		cfg.BlockSize = 0
	}
	if req.Unit != 0 {
		cfg.UnitSize = req.Unit
	}
	if req.Key != "" {
		cfg.Key = req.Key
	}
	if req.Selector != "" {
		cfg.Selector = req.Selector
	}
	if req.Partial != "" {
		cfg.Partial = db.PartialPolicy(req.Partial)
	}

	return &cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		c.Next()

		log.Debug().Fields(map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(now)}).
			Msg("Request")
	}
}
