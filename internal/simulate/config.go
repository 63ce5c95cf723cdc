package simulate

import "time"

// Config holds configuration for the jump simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumJumps   int           // Number of manual jumps to generate
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated jumps
	LogFile    string        // Log file for simulation output
	Verbose    bool          // Enable verbose logging
}

// Jump is one generated manual measurement request together with the
// values the service is expected to compute from it.
type Jump struct {
	SubjectID        string  `json:"subject_id"`
	TakeoffSeconds   float64 `json:"takeoff_seconds"`
	PeakSeconds      float64 `json:"peak_seconds"`
	ExpectedHeightCm float64 `json:"expected_height_cm"`
	ExpectedCategory string  `json:"expected_category"`
}

// MeasurementResponse is the wire shape returned by the manual endpoint.
type MeasurementResponse struct {
	ID        string  `json:"id"`
	SubjectID string  `json:"subject_id"`
	Method    string  `json:"method"`
	HeightCm  float64 `json:"height_cm"`
	Category  string  `json:"category"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank      int     `json:"rank"`
	SubjectID string  `json:"subject_id"`
	HeightCm  float64 `json:"height_cm"`
}

// Stats holds simulation statistics.
type Stats struct {
	JumpsGenerated     int
	JumpsSubmitted     int
	JumpsSuccessful    int
	JumpsMismatched    int
	JumpsFailed        int
	RankingsRetrieved  int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
