package beacon

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"git.backbone/corpix/stingray/pkg/meta"
)

// DocumentConfig describes a static document for hosts which have no page
// of their own.
type DocumentConfig struct {
	Charset    string `yaml:"charset"`
	Domain     string `yaml:"domain"`
	Encoding   string `yaml:"encoding"`
	ReadyState string `yaml:"ready-state"`
	Referrer   string `yaml:"referrer"`
	URL        string `yaml:"url"`
	Visibility string `yaml:"visibility"`
}

func (c *DocumentConfig) Empty() bool {
	return c == nil || *c == DocumentConfig{}
}

type staticDocument struct{ c DocumentConfig }

func (d staticDocument) Charset() string         { return d.c.Charset }
func (d staticDocument) Domain() (string, error) { return d.c.Domain, nil }
func (d staticDocument) InputEncoding() string   { return d.c.Encoding }
func (d staticDocument) ReadyState() string      { return d.c.ReadyState }
func (d staticDocument) Referrer() string        { return d.c.Referrer }
func (d staticDocument) URL() string             { return d.c.URL }
func (d staticDocument) VisibilityState() string { return d.c.Visibility }

func NewStaticDocument(c DocumentConfig) Document {
	return staticDocument{c: c}
}

//

type processPerformance struct {
	start time.Time
}

func (p processPerformance) Timing() Fields {
	now := time.Now()
	return Fields{
		"navigationStart": p.start.UnixNano() / int64(time.Millisecond),
		"uptime":          now.Sub(p.start).Milliseconds(),
	}
}

func (p processPerformance) Memory() Fields {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Fields{
		"heapAlloc":  m.HeapAlloc,
		"heapSys":    m.HeapSys,
		"sys":        m.Sys,
		"numGC":      m.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}
}

//

// HostEnvironment is the environment of the running Go process.
type HostEnvironment struct {
	navigator   Fields
	document    Document
	performance Performance
}

func (e *HostEnvironment) Navigator() Fields        { return e.navigator }
func (e *HostEnvironment) Document() Document       { return e.document }
func (e *HostEnvironment) Performance() Performance { return e.performance }

// UserAgent identifies this process in the navigator source.
func UserAgent() string {
	return fmt.Sprintf(
		"%s/%s (%s; %s) %s",
		meta.Name, meta.Version,
		runtime.GOOS, runtime.GOARCH,
		runtime.Version(),
	)
}

func language() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		v = strings.SplitN(v, ".", 2)[0]
		return strings.Replace(v, "_", "-", 1)
	}
	return ""
}

// NewHostEnvironment describes the current process. A nil doc leaves the
// document source out.
func NewHostEnvironment(doc Document) *HostEnvironment {
	return &HostEnvironment{
		navigator: Fields{
			"userAgent":           UserAgent(),
			"platform":            runtime.GOOS,
			"hardwareConcurrency": runtime.NumCPU(),
			"language":            language(),
			"onLine":              true,
		},
		document:    doc,
		performance: processPerformance{start: processStart},
	}
}

var processStart = time.Now()
