package simulation

import "time"

// Config holds configuration for the ranking simulation.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumUsers    int           // Number of simulated users
	SetsPerUser int           // Sets each user logs and ranks
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Seed        int64         // Seed for deterministic generation; 0 means time-seeded
	Verbose     bool          // Enable verbose logging
}

// Stats holds simulation statistics.
type Stats struct {
	SetsLogged      int
	SessionsOpened  int
	SessionsSkipped int
	DecisionsMade   int
	Duplicates      int
	Failed          int
	UsersVerified   int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// setRequest mirrors the wire schema for POST /sets.
type setRequest struct {
	Provider string        `json:"provider"`
	Payload  manualPayload `json:"payload"`
	Bucket   string        `json:"bucket"`
}

type manualPayload struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Venue  string `json:"venue"`
}

// setResponse mirrors the created set returned by POST /sets.
type setResponse struct {
	ID     string  `json:"id"`
	Bucket string  `json:"bucket"`
	Rating float64 `json:"rating"`
}

type openRequest struct {
	SetID string `json:"set_id"`
}

type pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

type openResponse struct {
	Skip      bool `json:"skip"`
	FirstPair pair `json:"first_pair"`
	Remaining int  `json:"remaining"`
}

type decideRequest struct {
	WinnerID string `json:"winner_id"`
}

type decideResponse struct {
	Done      bool `json:"done"`
	Duplicate bool `json:"duplicate"`
	NextPair  pair `json:"next_pair"`
	Remaining int  `json:"remaining"`
}

// boardEntry mirrors one GET /leaderboard row.
type boardEntry struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
}
