package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a history entry in a transport-friendly format.
type Job struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	ModelSize        string `json:"modelSize"`
	Task             string `json:"task"`
	Language         string `json:"language,omitempty"`
	Format           string `json:"format"`
	MaxChars         int    `json:"maxChars"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
	Segments         int    `json:"segments"`
	Adjusted         int    `json:"adjusted,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	FinishedAt       string `json:"finishedAt,omitempty"`
	DurationMillis   int64  `json:"durationMs"`
}

// JobStats counts history entries by status.
type JobStats struct {
	Total     int `json:"total"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ModelInfo describes a model size and whether it is loaded.
type ModelInfo struct {
	Size        string `json:"size"`
	Parameters  string `json:"parameters"`
	Description string `json:"description"`
	Loaded      bool   `json:"loaded"`
	Default     bool   `json:"default"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	StartedAt      string             `json:"startedAt,omitempty"`
	Bind           string             `json:"bind"`
	HistoryDBPath  string             `json:"historyDbPath,omitempty"`
	LockFilePath   string             `json:"lockFilePath"`
	LoadedModels   []string           `json:"loadedModels"`
	ActiveRequests int                `json:"activeRequests"`
	Workspaces     int                `json:"workspaces"`
	Jobs           *JobStats          `json:"jobs,omitempty"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// ModelsResponse wraps the model catalog.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// JobListResponse wraps job listings.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}
