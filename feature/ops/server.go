package ops

import (
	"lobby-tracker/feature/tracker/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config holds configuration for the operational HTTP surface.
type Config struct {
	// Enabled controls whether the ops server is started at all.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
}

// Server serves the operational endpoints.
type Server struct {
	app     *fiber.App
	db      *gorm.DB
	logger  *zap.Logger
	regions []models.RegionID
}

// feedPositionRow is the JSON shape of one checkpoint listing entry.
type feedPositionRow struct {
	Feed           string `json:"feed"`
	Region         string `json:"region"`
	Enabled        bool   `json:"enabled"`
	StorageFile    uint32 `json:"storageFile"`
	StorageOffset  int64  `json:"storageOffset"`
	ResumingFile   uint32 `json:"resumingFile"`
	ResumingOffset int64  `json:"resumingOffset"`
}

// NewServer creates the ops server for the given tracked regions.
func NewServer(db *gorm.DB, logger *zap.Logger, regions []models.RegionID) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		db:      db,
		logger:  logger,
		regions: regions,
	}
	s.app.Get("/healthz", s.handleHealthz)
	s.app.Get("/positions", s.handlePositions)
	return s
}

// Listen blocks serving HTTP on the given port.
func (s *Server) Listen(port string) error {
	return s.app.Listen(":" + port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	codes := make([]string, 0, len(s.regions))
	for _, r := range s.regions {
		codes = append(codes, r.Code())
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"regions": codes,
	})
}

func (s *Server) handlePositions(c *fiber.Ctx) error {
	var providers []models.FeedProvider
	err := s.db.WithContext(c.Context()).Preload("Position").Find(&providers).Error
	if err != nil {
		s.logger.Error("positions listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	rows := make([]feedPositionRow, 0, len(providers))
	for _, p := range providers {
		rows = append(rows, feedPositionRow{
			Feed:           p.Name,
			Region:         models.RegionID(p.RegionID).Code(),
			Enabled:        p.Enabled,
			StorageFile:    p.Position.StorageFile,
			StorageOffset:  p.Position.StorageOffset,
			ResumingFile:   p.Position.ResumingFile,
			ResumingOffset: p.Position.ResumingOffset,
		})
	}
	return c.JSON(rows)
}
