package flexo

import "time"

// Project is a model repository project record.
type Project struct {
	ID          string `json:"@id"`
	Type        string `json:"@type,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Commit is a single commit on a project's main branch.
type Commit struct {
	ID          string    `json:"@id"`
	Type        string    `json:"@type,omitempty"`
	Created     time.Time `json:"created"`
	Description string    `json:"description,omitempty"`
}

// commitRequest is the body posted to the commits endpoint.
type commitRequest struct {
	Type        string `json:"@type"`
	Change      any    `json:"change"`
	Description string `json:"description,omitempty"`
}

// projectRequest is the body posted to create a project.
type projectRequest struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
