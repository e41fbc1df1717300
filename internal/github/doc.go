// Package github lists a user's public repositories through the GitHub REST
// API.
//
// Each call issues one unauthenticated GET for the first 100 records. There
// is no pagination and no retry. Non-2xx responses are
// reported as [*StatusError] so callers can show the status line to viewers.
//
//	c := github.NewClient(github.WithUserAgent("portfolio"))
//	repos, err := c.ListUserRepos(ctx, "octocat")
package github
