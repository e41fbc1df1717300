package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khantimmy27/portfolio/internal/content"
	"github.com/khantimmy27/portfolio/internal/feed"
	"github.com/khantimmy27/portfolio/internal/session"
	"github.com/khantimmy27/portfolio/internal/theme"
)

const (
	colorSchemeHint = "Sec-CH-Prefers-Color-Scheme"
	maxWait         = 15 * time.Second
)

func (h *handlers) defaultUser(r *content.Resume) string {
	if h.githubUser != "" {
		return h.githubUser
	}
	return r.GitHubUser
}

func (h *handlers) index(c *gin.Context) {
	res := h.content.Get()
	user := h.defaultUser(res)
	view := h.views.Create(user)

	pref := view.Theme()
	resolved := theme.Resolve(pref, c.GetHeader(colorSchemeHint))
	fd := feedData(view.ID, view.Snapshot(), false)
	fd["kick"] = true
	c.Header("Accept-CH", colorSchemeHint)
	c.Header("Vary", colorSchemeHint)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"resume":    res,
		"nav":       content.Nav(),
		"view":      view.ID,
		"user":      user,
		"themePref": string(pref),
		"theme":     string(resolved),
		"toggle":    string(theme.Toggle(resolved)),
		"resumePDF": h.resumePDF,
		"year":      time.Now().Year(),
		"feed":      fd,
	})
}

// themeData is the template context for theme-pref.html.
func themeData(view *session.View, oob bool) gin.H {
	return gin.H{"view": view.ID, "pref": string(view.Theme()), "oob": oob}
}

// feedData is the template context for repos.html.
func feedData(viewID string, st feed.State, oob bool) gin.H {
	return gin.H{
		"view":    viewID,
		"state":   st,
		"user":    st.Identifier,
		"loading": st.Status == feed.StatusLoading,
		"failed":  st.Status == feed.StatusFailed,
		"ready":   st.Status == feed.StatusReady,
		"oob":     oob && st.Identifier != "",
	}
}

func (h *handlers) lookup(c *gin.Context) (*session.View, bool) {
	view, err := h.views.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrViewNotFound) {
			c.HTML(http.StatusNotFound, "repos-expired.html", nil)
		} else {
			c.AbortWithStatus(http.StatusInternalServerError)
		}
		return nil, false
	}
	return view, true
}

func (h *handlers) reposFragment(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	view.Start()
	data := feedData(view.ID, view.Snapshot(), false)
	data["theme"] = themeData(view, true)
	c.HTML(http.StatusOK, "repos.html", data)
}

// themePref lets an open page pick up site theme changes. The poll also keeps
// the view alive while the page stays open.
func (h *handlers) themePref(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "theme-pref.html", themeData(view, false))
}

// setIdentifier handles the username form. A blank submission leaves the
// feed as it was.
func (h *handlers) setIdentifier(c *gin.Context) {
	view, ok := h.lookup(c)
	if !ok {
		return
	}
	issued := view.Load(c.PostForm("gh"))
	c.HTML(http.StatusOK, "repos.html", feedData(view.ID, view.Snapshot(), issued))
}

func (h *handlers) lookupJSON(c *gin.Context) (*session.View, bool) {
	view, err := h.views.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return view, true
}

// reposJSON returns the view's feed state. With ?wait=1 it blocks until the
// outstanding request settles.
func (h *handlers) reposJSON(c *gin.Context) {
	view, ok := h.lookupJSON(c)
	if !ok {
		return
	}
	view.Start()
	if c.Query("wait") == "" || c.Query("wait") == "0" {
		c.JSON(http.StatusOK, view.Snapshot())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), maxWait)
	defer cancel()
	st, err := view.Loader.Wait(ctx)
	if err != nil {
		h.logger.Debug("wait for feed interrupted", "view", view.ID, "err", err)
	}
	c.JSON(http.StatusOK, st)
}

type identifierRequest struct {
	Identifier string `json:"identifier"`
}

func (h *handlers) setIdentifierJSON(c *gin.Context) {
	view, ok := h.lookupJSON(c)
	if !ok {
		return
	}
	var req identifierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	issued := view.Load(req.Identifier)
	c.JSON(http.StatusAccepted, gin.H{"issued": issued, "state": view.Snapshot()})
}
