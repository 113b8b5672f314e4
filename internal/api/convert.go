package api

import (
	"subtitler/internal/deps"
	"subtitler/internal/history"
	"subtitler/internal/models"
)

// FromJob converts a history record to its API representation.
func FromJob(job *history.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:               job.ID,
		Filename:         job.Filename,
		ModelSize:        job.ModelSize,
		Task:             job.Task,
		Language:         job.Language,
		Format:           job.Format,
		MaxChars:         job.MaxChars,
		Status:           string(job.Status),
		ErrorMessage:     job.ErrorMessage,
		Segments:         job.Segments,
		Adjusted:         job.Adjusted,
		DetectedLanguage: job.DetectedLanguage,
		DurationMillis:   job.Duration.Milliseconds(),
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = job.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of history records.
func FromJobs(jobs []*history.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStats converts history counts.
func FromStats(stats history.Stats) *JobStats {
	return &JobStats{
		Total:     stats.Total,
		Running:   stats.Running,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
	}
}

// ModelCatalog lists every model size in catalog order, flagging the
// resident ones and the configured default.
func ModelCatalog(loaded []models.Size, defaultSize models.Size) []ModelInfo {
	resident := make(map[models.Size]bool, len(loaded))
	for _, size := range loaded {
		resident[size] = true
	}
	catalog := models.Catalog()
	out := make([]ModelInfo, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, ModelInfo{
			Size:        string(info.Size),
			Parameters:  info.Parameters,
			Description: info.Description,
			Loaded:      resident[info.Size],
			Default:     info.Size == defaultSize,
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}
