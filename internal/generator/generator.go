package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/vanshika/internet-atlas/backend/internal/service"
)

// Generator produces synthetic browsing sessions shaped like a panel export.
type Generator struct {
	cfg       Config
	rand      *rand.Rand
	zipf      *rand.Zipf
	domains   []string
	fragments domainFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = defaults.NumUsers
	}
	if cfg.SessionsPerUser <= 0 {
		cfg.SessionsPerUser = defaults.SessionsPerUser
	}
	if cfg.DomainPoolSize <= 1 {
		cfg.DomainPoolSize = defaults.DomainPoolSize
	}
	if cfg.DirtyRatio < 0 || cfg.DirtyRatio > 1 {
		cfg.DirtyRatio = defaults.DirtyRatio
	}
	if cfg.Skew <= 1 {
		cfg.Skew = defaults.Skew
	}
	if cfg.Start.IsZero() {
		cfg.Start = defaults.Start
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	g := &Generator{
		cfg:       cfg,
		rand:      r,
		zipf:      rand.NewZipf(r, cfg.Skew, 1, uint64(cfg.DomainPoolSize-1)),
		fragments: defaultDomainFragments(),
	}
	g.domains = g.domainPool(cfg.DomainPoolSize)
	return g
}

// Generate synthesises session rows in panel order (user, then time). It
// respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]service.SessionInput, error) {
	rows := make([]service.SessionInput, 0, g.cfg.NumUsers*g.cfg.SessionsPerUser)

	for u := range g.cfg.NumUsers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		userID := strconv.Itoa(1000 + u)
		cursor := g.cfg.Start.Add(time.Duration(g.rand.Intn(12*60)) * time.Minute)
		current := g.pickDomain()

		for range g.cfg.SessionsPerUser {
			active := 5 + g.rand.Intn(600)
			end := cursor.Add(time.Duration(active) * time.Second)

			row := service.SessionInput{
				Line:          len(rows) + 2,
				UserID:        userID,
				Domain:        g.decorate(current),
				StartTime:     cursor.Format(time.DateTime),
				EndTime:       end.Format(time.DateTime),
				ActiveSeconds: strconv.Itoa(active),
				RowCount:      strconv.Itoa(1 + g.rand.Intn(40)),
			}
			if g.rand.Float64() < g.cfg.DirtyRatio {
				g.corrupt(&row)
			}
			rows = append(rows, row)

			cursor = end.Add(time.Duration(1+g.rand.Intn(900)) * time.Second)
			// Stay on the same site now and then to produce repeat visits.
			if g.rand.Float64() >= 0.2 {
				current = g.pickDomain()
			}
		}
	}
	return rows, nil
}

// Domains returns the canonical domain pool.
func (g *Generator) Domains() []string {
	return append([]string(nil), g.domains...)
}

func (g *Generator) pickDomain() string {
	return g.domains[g.zipf.Uint64()]
}

// decorate renders a domain the way raw exports do: mixed case, padding and
// stray dots, all of which normalisation removes.
func (g *Generator) decorate(domain string) string {
	switch g.rand.Intn(10) {
	case 0:
		return " " + domain + " "
	case 1:
		return fmt.Sprintf("%s.", domain)
	case 2:
		return upperFirst(domain)
	default:
		return domain
	}
}

type corruption int

const (
	corruptUser corruption = iota
	corruptDomain
	corruptStart
	dropEnd
	dropEndAndActive
	invertEnd
	dropActive
	numCorruptions
)

func (g *Generator) corrupt(row *service.SessionInput) {
	switch corruption(g.rand.Intn(int(numCorruptions))) {
	case corruptUser:
		row.UserID = []string{"", "n/a", "-4", "12abc"}[g.rand.Intn(4)]
	case corruptDomain:
		row.Domain = []string{"", "localhost", "not a domain", "???"}[g.rand.Intn(4)]
	case corruptStart:
		row.StartTime = []string{"", "yesterday", "2024-13-45"}[g.rand.Intn(3)]
	case dropEnd:
		row.EndTime = ""
	case dropEndAndActive:
		row.EndTime = ""
		row.ActiveSeconds = ""
	case invertEnd:
		start, err := time.Parse(time.DateTime, row.StartTime)
		if err == nil {
			row.EndTime = start.Add(-time.Duration(1+g.rand.Intn(300)) * time.Second).Format(time.DateTime)
		}
	case dropActive:
		row.ActiveSeconds = ""
	}
}

func (g *Generator) domainPool(size int) []string {
	seen := make(map[string]struct{}, size)
	pool := make([]string, 0, size)
	for attempts := 0; len(pool) < size; attempts++ {
		name := g.randomDomain(attempts > size*4)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		pool = append(pool, name)
	}
	return pool
}

func (g *Generator) randomDomain(numbered bool) string {
	f := g.fragments
	name := f.names[g.rand.Intn(len(f.names))]
	if numbered {
		name += strconv.Itoa(g.rand.Intn(1000))
	}
	tld := f.tlds[g.rand.Intn(len(f.tlds))]
	if g.rand.Intn(3) == 0 {
		sub := f.subdomains[g.rand.Intn(len(f.subdomains))]
		return sub + "." + name + "." + tld
	}
	return name + "." + tld
}

func upperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

type domainFragments struct {
	subdomains []string
	names      []string
	tlds       []string
}

func defaultDomainFragments() domainFragments {
	return domainFragments{
		subdomains: []string{"www", "news", "mail", "shop", "docs", "m", "blog", "app"},
		names: []string{
			"atlas", "orbit", "pixel", "harbor", "quill", "meadow", "summit", "lumen",
			"cobalt", "ember", "tidal", "vertex", "nimbus", "juniper", "canyon", "relay",
			"sparrow", "granite", "saffron", "beacon", "kestrel", "marble", "willow", "zephyr",
		},
		tlds: []string{"com", "org", "net", "io", "co.uk", "de", "edu"},
	}
}
