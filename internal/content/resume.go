package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/khantimmy27/portfolio/internal/theme"
)

//go:embed resume.yaml
var defaultResume []byte

// Link is a labelled external URL.
type Link struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// Experience is one role in the Experience section.
type Experience struct {
	Company string   `yaml:"company"`
	Role    string   `yaml:"role"`
	Period  string   `yaml:"period"`
	Bullets []string `yaml:"bullets"`
	Links   []Link   `yaml:"links"`
}

// Project is a hand-written project entry shown above the repository feed.
type Project struct {
	Name    string   `yaml:"name"`
	Details []string `yaml:"details"`
}

// Education is one degree.
type Education struct {
	School  string   `yaml:"school"`
	Degree  string   `yaml:"degree"`
	Period  string   `yaml:"period"`
	Details []string `yaml:"details"`
}

// Entry is a publication or talk.
type Entry struct {
	Title string `yaml:"title"`
	Venue string `yaml:"venue"`
	Year  string `yaml:"year"`
	Link  string `yaml:"link"`
}

// Resume is everything rendered on the page apart from the repository feed.
// Summary and About are Markdown.
type Resume struct {
	Name           string       `yaml:"name"`
	Title          string       `yaml:"title"`
	Summary        string       `yaml:"summary"`
	About          string       `yaml:"about"`
	Location       string       `yaml:"location"`
	Email          string       `yaml:"email"`
	LinkedIn       string       `yaml:"linkedin"`
	GitHubUser     string       `yaml:"github_user"`
	PreferredRepos []string     `yaml:"preferred_repos"`
	Theme          string       `yaml:"theme"`
	Highlights     []string     `yaml:"highlights"`
	Experience     []Experience `yaml:"experience"`
	Projects       []Project    `yaml:"projects"`
	Education      []Education  `yaml:"education"`
	Skills         []string     `yaml:"skills"`
	Publications   []Entry      `yaml:"publications"`
	Speaking       []Entry      `yaml:"speaking"`

	summaryHTML template.HTML
	aboutHTML   template.HTML
}

// Load reads a resume from path, or the embedded default when path is empty.
func Load(path string) (*Resume, error) {
	if path == "" {
		return Parse(defaultResume)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Default returns the embedded resume.
func Default() *Resume {
	r, err := Parse(defaultResume)
	if err != nil {
		panic("embedded resume.yaml: " + err.Error())
	}
	return r
}

// Parse decodes and validates a YAML resume and renders its Markdown fields.
func Parse(data []byte) (*Resume, error) {
	var r Resume
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode resume: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}

	var err error
	if r.summaryHTML, err = renderMarkdown(r.Summary); err != nil {
		return nil, fmt.Errorf("render summary: %w", err)
	}
	if r.aboutHTML, err = renderMarkdown(r.About); err != nil {
		return nil, fmt.Errorf("render about: %w", err)
	}
	return &r, nil
}

func (r *Resume) validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.ContainsAny(r.GitHubUser, " /") {
		errs = append(errs, fmt.Errorf("github_user %q is not a valid username", r.GitHubUser))
	}
	if _, err := theme.Parse(r.Theme); err != nil {
		errs = append(errs, err)
	}
	for i, e := range r.Experience {
		if e.Role == "" || e.Company == "" {
			errs = append(errs, fmt.Errorf("experience[%d]: role and company are required", i))
		}
	}
	return errors.Join(errs...)
}

// renderMarkdown converts Markdown to HTML. Raw HTML in the source is
// escaped by goldmark's default renderer.
func renderMarkdown(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// SummaryHTML is the rendered summary.
func (r *Resume) SummaryHTML() template.HTML { return r.summaryHTML }

// AboutHTML is the rendered About section.
func (r *Resume) AboutHTML() template.HTML { return r.aboutHTML }

// Initials is the first letter of each word of the name.
func (r *Resume) Initials() string {
	var b strings.Builder
	for _, part := range strings.Fields(r.Name) {
		first, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(first))
	}
	return b.String()
}

// Section is a page anchor in the header navigation.
type Section struct {
	ID    string
	Label string
}

var nav = []Section{
	{"about", "About"},
	{"experience", "Experience"},
	{"projects", "Projects"},
	{"education", "Education"},
	{"skills", "Skills"},
	{"pubs", "Publications"},
	{"speaking", "Speaking"},
	{"contact", "Contact"},
}

// Nav lists the page sections in display order.
func Nav() []Section {
	out := make([]Section, len(nav))
	copy(out, nav)
	return out
}
