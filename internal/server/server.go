package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"city-distance/internal/calculator"
	"city-distance/internal/config"
	"city-distance/internal/csvio"
	"city-distance/internal/dataset"
	"city-distance/internal/jobs"
	"city-distance/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// jobRetention is how long finished jobs stay queryable.
const jobRetention = 24 * time.Hour

type Server struct {
	cfg    *config.Config
	store  *jobs.Store
	graphs *graphCache
	logger *log.Logger
	router *gin.Engine
	// base is the parent context of every job; canceling it stops them all.
	base context.Context
}

func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Server, error) {
	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	s := &Server{
		cfg:    cfg,
		store:  jobs.NewStore(),
		graphs: newGraphCache(),
		logger: logger,
		base:   ctx,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/run", s.run)
	r.GET("/logs", s.logs)
	r.GET("/status", s.status)
	r.POST("/cancel", s.cancel)
	r.GET("/download-template", s.downloadTemplate)
	r.GET("/download-result/:filename", s.downloadResult)
	r.GET("/find-path", s.findPath)
	r.GET("/api/find-path", s.findPath)

	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Server.Listen until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Distance server listening on %s", s.cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) run(c *gin.Context) {
	file, err := c.FormFile("input_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "input_file is required"})
		return
	}

	meters := s.cfg.ThresholdMeters
	if metersStr := c.PostForm("meters"); metersStr != "" {
		meters, err = strconv.ParseFloat(metersStr, 64)
		if err == nil {
			err = calculator.ValidateThreshold(meters)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": fmt.Sprintf("invalid meters: %v", err)})
			return
		}
	}

	name := filepath.Base(file.Filename)
	inputPath := filepath.Join(s.cfg.Server.UploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), name))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		s.logger.Errorf("saving upload %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not store upload"})
		return
	}

	s.store.Prune(time.Now().Add(-jobRetention))
	job, ctx := s.store.New(s.base)

	// Start Processing in Goroutine
	go s.process(ctx, job, inputPath, meters)

	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func outputName(inputPath string) string {
	ext := filepath.Ext(inputPath)
	if dataset.FormatOf(inputPath) != dataset.XLSX {
		ext = ".csv"
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return base + "_distances" + ext
}

func (s *Server) process(ctx context.Context, job *jobs.Job, inputPath string, meters float64) {
	defer func() {
		if r := recover(); r != nil {
			job.Fail(fmt.Errorf("panic: %v", r))
		}
	}()

	opts := pipeline.OptionsFromConfig(s.cfg)
	opts.InputPath = inputPath
	opts.OutputPath = filepath.Join(s.cfg.Server.OutputDir, outputName(inputPath))
	opts.ThresholdMeters = meters
	opts.Logger = job.Logger(s.logger)
	opts.OnProgress = job.SetProgress

	summary, err := pipeline.Run(ctx, opts)
	os.Remove(inputPath)
	if err != nil {
		job.Fail(err)
		return
	}

	job.Finish(&jobs.Result{
		Points:   summary.Points,
		Rows:     summary.Rows,
		Meters:   meters,
		Output:   summary.Output,
		Filename: filepath.Base(summary.Output),
	})
}

func (s *Server) job(c *gin.Context) *jobs.Job {
	job := s.store.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Job not found"})
	}
	return job
}

func (s *Server) logs(c *gin.Context) {
	job := s.job(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (s *Server) status(c *gin.Context) {
	job := s.job(c)
	if job == nil {
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cancel(c *gin.Context) {
	job := s.job(c)
	if job == nil {
		return
	}
	if job.Cancel() {
		job.Log("Cancel requested by user.")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": job.Status()})
}

func (s *Server) downloadTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="template.csv"`)
	c.Header("Content-Type", "text/csv")
	if err := csvio.WriteTemplate(c.Writer, s.cfg.Columns); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) downloadResult(c *gin.Context) {
	filename := c.Param("filename")
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid filename"})
		return
	}

	target := filepath.Join(s.cfg.Server.OutputDir, filename)
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "result not found"})
		return
	}
	c.FileAttachment(target, filename)
}
