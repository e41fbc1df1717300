package github

import "time"

// Repository is the subset of the GitHub repository object the feed reads.
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Homepage        *string   `json:"homepage"`
	StargazersCount int       `json:"stargazers_count"`
	Language        *string   `json:"language"`
	UpdatedAt       time.Time `json:"updated_at"`
	Fork            bool      `json:"fork"`
	Archived        bool      `json:"archived"`
}
