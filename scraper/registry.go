package scraper

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var defaultSitesYAML []byte

type sitesFile struct {
	Sites []SiteConfig `yaml:"sites"`
}

// Registry indexes site configurations by ID and domain. It is not modified
// after loading and is safe for concurrent reads.
type Registry struct {
	byID     map[string]*SiteConfig
	byDomain map[string]*SiteConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]*SiteConfig),
		byDomain: make(map[string]*SiteConfig),
	}
}

// ParseSites reads site configurations from YAML.
func ParseSites(data []byte) ([]SiteConfig, error) {
	var file sitesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sites: %w", err)
	}
	return file.Sites, nil
}

// DefaultRegistry returns a registry holding the built-in sites.
func DefaultRegistry() (*Registry, error) {
	sites, err := ParseSites(defaultSitesYAML)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	for _, site := range sites {
		if err := r.Add(site); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadRegistry returns the built-in sites overlaid with those in the YAML
// file at path. Sites in the file replace built-in sites with the same ID.
// An empty path or a missing file yields the built-in sites.
func LoadRegistry(path string) (*Registry, error) {
	r, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}

	sites, err := ParseSites(data)
	if err != nil {
		return nil, err
	}
	for _, site := range sites {
		if err := r.Add(site); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add validates a site and registers it, replacing any site with the same
// ID.
func (r *Registry) Add(site SiteConfig) error {
	if err := site.Validate(); err != nil {
		return err
	}

	if old, ok := r.byID[site.ID]; ok {
		delete(r.byDomain, normalizeHost(old.Domain))
	}

	s := site
	r.byID[s.ID] = &s
	r.byDomain[normalizeHost(s.Domain)] = &s
	return nil
}

// Get returns the site with the given ID.
func (r *Registry) Get(id string) (*SiteConfig, bool) {
	site, ok := r.byID[id]
	return site, ok
}

// ForURL finds the site serving rawURL. Subdomains match their parent
// domain, so "m.example.com" uses the "example.com" entry.
func (r *Registry) ForURL(rawURL string) (*SiteConfig, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, false
	}

	host := normalizeHost(u.Hostname())
	for host != "" {
		if site, ok := r.byDomain[host]; ok {
			return site, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return nil, false
}

// Sites returns every registered site ordered by ID.
func (r *Registry) Sites() []SiteConfig {
	out := make([]SiteConfig, 0, len(r.byID))
	for _, site := range r.byID {
		out = append(out, *site)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// minSuggestSimilarity is the lowest similarity at which Suggest offers a
// site ID.
const minSuggestSimilarity = 0.6

// Suggest returns the registered site ID closest to id, or "" when none is
// similar enough to be a likely typo.
func (r *Registry) Suggest(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ""
	}

	best, bestScore := "", 0.0
	for candidate := range r.byID {
		score := similarity(id, candidate)
		if score > bestScore || (score == bestScore && candidate < best) {
			best, bestScore = candidate, score
		}
	}
	if bestScore < minSuggestSimilarity {
		return ""
	}
	return best
}

// similarity is 1 - distance/max(len(a), len(b)) over runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
