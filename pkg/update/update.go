// Package update checks whether a newer comtrya release is available.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/mod/semver"

	"github.com/macropower/comtrya/pkg/log"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultRepo    = "comtrya/comtrya"
	DefaultTimeout = 2 * time.Second

	InstallCommand = "curl -fsSL https://get.comtrya.dev | sh"
)

var (
	// ErrUnversioned is returned for builds without a semantic version.
	ErrUnversioned = errors.New("current version is not a semantic version")
	// ErrUnexpectedStatus is returned for non-200 responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Release is a published release.
type Release struct {
	Version string `json:"tag_name"`
	URL     string `json:"html_url"`
}

// Opt configures a [Checker].
type Opt func(*Checker)

func WithBaseURL(url string) Opt {
	return func(c *Checker) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

func WithHTTPClient(client *http.Client) Opt {
	return func(c *Checker) {
		c.client = client
	}
}

func WithTimeout(d time.Duration) Opt {
	return func(c *Checker) {
		c.timeout = d
	}
}

// Checker queries the latest release of a GitHub repository.
type Checker struct {
	client  *http.Client
	baseURL string
	repo    string
	timeout time.Duration
}

func NewChecker(opts ...Opt) *Checker {
	c := &Checker{
		client:  http.DefaultClient,
		baseURL: DefaultBaseURL,
		repo:    DefaultRepo,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check returns the latest release when it is newer than current, or nil.
func (c *Checker) Check(ctx context.Context, current string) (*Release, error) {
	cur := canonical(current)
	if !semver.IsValid(cur) {
		return nil, fmt.Errorf("%w: %q", ErrUnversioned, current)
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if semver.Compare(canonical(latest.Version), cur) <= 0 {
		return nil, nil //nolint:nilnil // No newer release.
	}

	return latest, nil
}

// Latest fetches the latest release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get latest release: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			log.WithContext(ctx).DebugContext(ctx, "close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	rel := &Release{}

	err = json.Unmarshal(body, rel)
	if err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	if !semver.IsValid(canonical(rel.Version)) {
		return nil, fmt.Errorf("latest release %q is not a semantic version", rel.Version)
	}

	return rel, nil
}

// Notice writes a styled message announcing rel.
func Notice(w io.Writer, current string, rel *Release, noColor bool) error {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}

	name := r.NewStyle().Foreground(lipgloss.Color("6"))
	newer := r.NewStyle().Foreground(lipgloss.Color("2"))
	link := r.NewStyle().Foreground(lipgloss.Color("4"))

	url := rel.URL
	if url == "" {
		url = fmt.Sprintf("https://github.com/%s/releases/tag/%s", DefaultRepo, rel.Version)
	}

	_, err := fmt.Fprintf(w, "\nA new version of %s is available: %s -> %s\nChangelog: %s\nRun to update: %s\n",
		name.Render("comtrya"),
		canonical(current),
		newer.Render(canonical(rel.Version)),
		link.Render(url),
		newer.Render(InstallCommand),
	)
	if err != nil {
		return fmt.Errorf("write notice: %w", err)
	}

	return nil
}

func canonical(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}

	return "v" + v
}
