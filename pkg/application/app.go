package application

import (
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// App is the main application context that holds all dependencies
type App struct {
	Log     *zap.Logger
	BaseDir string
	Config  *viper.Viper
}

// New creates a new application instance
func New() *App {
	return &App{}
}

// Setup initializes the application with dependencies
func (a *App) Setup(baseDir string, logger *zap.Logger, config *viper.Viper) {
	a.BaseDir = baseDir
	a.Log = logger
	a.Config = config
}

// GetDataDir returns the directory for election data files
func (a *App) GetDataDir() string {
	return filepath.Join(a.BaseDir, "data")
}

// GetRunsDir returns the directory backing the server's run store
func (a *App) GetRunsDir() string {
	return filepath.Join(a.BaseDir, "runs")
}

// GetOutputDir returns the directory for written results
func (a *App) GetOutputDir() string {
	return filepath.Join(a.BaseDir, "output")
}
