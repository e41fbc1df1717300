package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khantimmy27/portfolio/internal/github"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func repo(name string, stars int, fork, archived bool) github.Repository {
	return github.Repository{
		ID:              int64(len(name)*1000 + stars),
		Name:            name,
		HTMLURL:         "https://github.com/u/" + name,
		StargazersCount: stars,
		UpdatedAt:       epoch,
		Fork:            fork,
		Archived:        archived,
	}
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestTransform_ForkExcludedScenario(t *testing.T) {
	in := []github.Repository{
		repo("x", 5, false, false),
		repo("y", 10, true, false),
		repo("z", 3, false, false),
	}
	assert.Equal(t, []string{"x", "z"}, names(Transform(in, Options{})))
}

func TestTransform_DropsForksAndArchived(t *testing.T) {
	in := []github.Repository{
		repo("keep", 1, false, false),
		repo("fork", 100, true, false),
		repo("archived", 100, false, true),
		repo("both", 100, true, true),
	}
	out := Transform(in, Options{})
	assert.Equal(t, []string{"keep"}, names(out))
}

func TestTransform_CapsAtMaxItems(t *testing.T) {
	var in []github.Repository
	for i := 0; i < 30; i++ {
		in = append(in, repo(fmt.Sprintf("r%02d", i), i, false, false))
	}

	assert.Len(t, Transform(in, Options{}), DefaultMaxItems)
	assert.Len(t, Transform(in, Options{MaxItems: 3}), 3)
	assert.Len(t, Transform(in[:2], Options{}), 2)

	top := Transform(in, Options{})
	assert.Equal(t, "r29", top[0].Name)
	assert.Equal(t, "r22", top[7].Name)
}

func TestTransform_Ordering(t *testing.T) {
	older := repo("older", 7, false, false)
	newer := repo("newer", 7, false, false)
	newer.UpdatedAt = epoch.Add(48 * time.Hour)
	first := repo("first-seen", 2, false, false)
	second := repo("second-seen", 2, false, false)

	out := Transform([]github.Repository{first, older, second, newer, repo("top", 50, false, false)}, Options{})
	require.Equal(t, []string{"top", "newer", "older", "first-seen", "second-seen"}, names(out))

	for i := 1; i < len(out); i++ {
		a, b := out[i-1], out[i]
		ok := a.Stars > b.Stars || (a.Stars == b.Stars && !a.UpdatedAt.Before(b.UpdatedAt))
		assert.True(t, ok, "%s should not precede %s", a.Name, b.Name)
	}
}

func TestTransform_AllowList(t *testing.T) {
	in := []github.Repository{
		repo("alpha", 1, false, false),
		repo("beta", 9, false, false),
		repo("gamma", 4, true, false),
		repo("Alpha", 20, false, false),
	}

	out := Transform(in, Options{AllowList: []string{"alpha", "gamma", "missing"}})
	assert.Equal(t, []string{"alpha"}, names(out), "exact match only, forks still dropped")

	out = Transform(in, Options{AllowList: []string{}})
	assert.Equal(t, []string{"Alpha", "beta", "alpha"}, names(out))
}

func TestTransform_MapsFields(t *testing.T) {
	desc, home, lang := "a tool", "", "Go"
	r := repo("tool", 4, false, false)
	r.Description = &desc
	r.Homepage = &home
	r.Language = &lang

	out := Transform([]github.Repository{r}, Options{})
	require.Len(t, out, 1)
	got := out[0]
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "https://github.com/u/tool", got.URL)
	assert.Equal(t, "a tool", *got.Description)
	assert.Nil(t, got.Homepage, "blank homepage is dropped")
	assert.Equal(t, "Go", got.Language)
	assert.Equal(t, 4, got.Stars)
}

func TestTransform_EmptyInput(t *testing.T) {
	out := Transform(nil, Options{})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
