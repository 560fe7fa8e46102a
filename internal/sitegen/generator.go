package sitegen

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/budzetlodz/budzetmapa/internal/budget"
)

// Generated file names under the data directory.
const (
	SitemapFile   = "sitemap.xml"
	RobotsFile    = "robots.txt"
	RedirectsFile = "_redirects"
)

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Generator writes the static-site support files next to the dataset.
type Generator struct {
	siteURL string
	dir     string
	logger  *zap.Logger
}

// NewGenerator constructs a Generator. siteURL is the public origin the site
// is served from, without a trailing slash.
func NewGenerator(siteURL, dir string, logger *zap.Logger) *Generator {
	return &Generator{
		siteURL: strings.TrimRight(siteURL, "/"),
		dir:     dir,
		logger:  logger,
	}
}

// ProjectPath returns the canonical site path for a project.
func ProjectPath(record budget.ProjectRecord) string {
	slug := Slug(record.Nazwa)
	if slug == "" {
		return "/projekt/" + record.ID
	}
	return fmt.Sprintf("/projekt/%s-%s", record.ID, slug)
}

// Run writes sitemap.xml, robots.txt and _redirects for the dataset.
func (g *Generator) Run(ds budget.Dataset) error {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("creating site dir: %w", err)
	}
	if err := g.writeSitemap(ds); err != nil {
		return err
	}
	if err := g.writeRobots(); err != nil {
		return err
	}
	if err := g.writeRedirects(ds); err != nil {
		return err
	}
	g.logger.Info("site files generated",
		zap.String("dir", g.dir),
		zap.Int("urls", len(ds.Projects)+1),
	)
	return nil
}

func (g *Generator) writeSitemap(ds budget.Dataset) error {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []sitemapURL{
			{Loc: g.siteURL + "/", LastMod: ds.Metadata.GeneratedAt},
		},
	}
	for _, record := range ds.Projects {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     g.siteURL + ProjectPath(record),
			LastMod: ds.Metadata.GeneratedAt,
		})
	}

	payload, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sitemap: %w", err)
	}
	body := xml.Header + string(payload) + "\n"
	return g.writeFile(SitemapFile, []byte(body))
}

func (g *Generator) writeRobots() error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/%s\n", g.siteURL, SitemapFile)
	return g.writeFile(RobotsFile, []byte(body))
}

// writeRedirects maps the short id-only path onto the canonical slugged path.
func (g *Generator) writeRedirects(ds budget.Dataset) error {
	var b strings.Builder
	for _, record := range ds.Projects {
		canonical := ProjectPath(record)
		short := "/projekt/" + record.ID
		if canonical == short {
			continue
		}
		fmt.Fprintf(&b, "%s %s 301\n", short, canonical)
	}
	return g.writeFile(RedirectsFile, []byte(b.String()))
}

func (g *Generator) writeFile(name string, data []byte) error {
	path := filepath.Join(g.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}
