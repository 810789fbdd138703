package server

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/musypher/internal/config"
	"github.com/agenthands/musypher/internal/core"
	"github.com/agenthands/musypher/internal/core/model"
	"github.com/agenthands/musypher/internal/core/pattern"
	"github.com/agenthands/musypher/internal/driver"
	"github.com/agenthands/musypher/internal/metrics"
)

type Server struct {
	Service *core.Service
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	d, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		log.Fatalf("Failed to connect to Neo4j: %v", err)
	}

	var rec metrics.Recorder = metrics.Noop{}
	if cfg.Metrics.Enabled {
		rec = metrics.NewCSV(cfg.Metrics.File)
	}

	return &Server{Service: core.NewService(d, rec)}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/ping", s.Ping)
	r.GET("/sources", s.Sources)
	r.POST("/generate-query", s.GenerateQuery)
	r.POST("/execute-fuzzy-query", s.ExecuteFuzzyQuery)
	r.POST("/execute-crisp-query", s.ExecuteCrispQuery)

	return r
}

func (s *Server) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) Sources(c *gin.Context) {
	sources, err := s.Service.ListSources(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list sources: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

type GenerateQueryRequest struct {
	Notes              string   `json:"notes" binding:"required"`
	PitchDistance      float64  `json:"pitch_distance"`
	DurationFactor     *float64 `json:"duration_factor"`
	DurationGap        float64  `json:"duration_gap"`
	Alpha              float64  `json:"alpha"`
	AllowTransposition bool     `json:"allow_transposition"`
	AllowHomothety     bool     `json:"allow_homothety"`
	IncipitOnly        bool     `json:"incipit_only"`
	Collection         string   `json:"collection"`
	ContourMatch       bool     `json:"contour_match"`
}

func (r *GenerateQueryRequest) params() model.FuzzyParams {
	p := model.DefaultFuzzyParams()
	p.PitchDistance = r.PitchDistance
	if r.DurationFactor != nil {
		p.DurationFactor = *r.DurationFactor
	}
	p.DurationGap = r.DurationGap
	p.Alpha = r.Alpha
	p.AllowTransposition = r.AllowTransposition
	p.AllowHomothety = r.AllowHomothety
	return p
}

func (s *Server) GenerateQuery(c *gin.Context) {
	var req GenerateQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	scope := pattern.Scope{IncipitOnly: req.IncipitOnly, Collection: req.Collection}

	var query string
	var err error
	if req.ContourMatch {
		var contour pattern.Contour
		contour, err = pattern.ParseContour(req.Notes)
		if err == nil {
			query, err = pattern.FromContour(contour, scope)
		}
	} else {
		var notes []pattern.NoteSpec
		notes, err = pattern.ParseNotes(req.Notes)
		if err == nil {
			query, err = pattern.FromNotes(notes, req.params(), scope)
		}
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query})
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) ExecuteFuzzyQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	results, err := s.Service.SearchUnified(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = []model.UnifiedResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) ExecuteCrispQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	rows, err := s.Service.ExecuteCrisp(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	c.JSON(http.StatusOK, gin.H{"results": rows})
}

// statusFor maps the pipeline's typed errors onto HTTP statuses: bad input
// is the caller's fault, store failures are not.
func statusFor(err error) int {
	var pe *model.ParseError
	var ve *model.ValidationError
	if errors.As(err, &pe) || errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
