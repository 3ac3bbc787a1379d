// Package model defines shared data structures.
package model

import "time"

// Config defines the settings for a single cipher task.
type Config struct {
	Cipher     string
	Key        string
	InputFile  string
	OutputFile string
	TextFiles  []string
	ModelFile  string
	ModelName  string
}

// LogConfig controls console logging.
type LogConfig struct {
	Verbose bool
	JSON    bool
}

// ModelInfo describes a reference model stored in the database.
type ModelInfo struct {
	Name      string
	Source    string
	Letters   int
	TrainedAt time.Time
}
