package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumQueries int           // Number of screener queries to issue
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	ReadyWait  time.Duration // How long to wait for the first dataset
	Favorites  bool          // Exercise the favorites round trip
	Export     bool          // Check the CSV export against the screener
	ReportFile string        // Optional JSON report path
	Seed       uint64        // Query generator seed; 0 picks one
	Verbose    bool          // Log every query
}

// Failure is one failed request or violated expectation.
type Failure struct {
	Check  string `json:"check"`
	Query  string `json:"query,omitempty"`
	Detail string `json:"detail"`
}

// Stats holds run statistics.
type Stats struct {
	QueriesGenerated int           `json:"queries_generated"`
	QueriesSent      int           `json:"queries_sent"`
	QueriesOK        int           `json:"queries_ok"`
	QueriesFailed    int           `json:"queries_failed"`
	RowsSeen         int           `json:"rows_seen"`
	EmptyPages       int           `json:"empty_pages"`
	Checks           int           `json:"checks"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
	Failures         []Failure     `json:"failures"`
}
