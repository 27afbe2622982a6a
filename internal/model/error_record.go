package model

import "time"

// ErrorRecord is one dead-lettered input with its failure metadata.
type ErrorRecord struct {
	Record         Raw       `json:"record"`
	Error          string    `json:"error"`
	ErrorType      string    `json:"error_type"`
	Timestamp      time.Time `json:"timestamp"`
	SourcePlatform string    `json:"source_platform"`
}
