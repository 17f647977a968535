package beacon

const (
	SourceNavigator   = "navigator"
	SourceDocument    = "document"
	SourcePerformance = "performance"
	SourceTiming      = "timing"
	SourceMemory      = "memory"
)

type (
	// IgnoreSet disables environment sources by name.
	IgnoreSet map[string]bool

	// Environment gives access to the ambient data sources of the host.
	// Any accessor may return nil when the source is not available.
	Environment interface {
		Navigator() Fields
		Document() Document
		Performance() Performance
	}

	// Document describes the page (or process) the beacon is sent from.
	Document interface {
		Charset() string
		// Domain may be restricted in sandboxed hosts.
		Domain() (string, error)
		InputEncoding() string
		ReadyState() string
		Referrer() string
		URL() string
		VisibilityState() string
	}

	Performance interface {
		Timing() Fields
		Memory() Fields
	}
)

func (s IgnoreSet) Has(source string) bool {
	return s != nil && s[source]
}

// Snapshot reads every source of env which is present and not ignored, in
// precedence order: navigator, document, performance timing, performance
// memory. Restricted field access is passed to report and the field is
// left out.
func Snapshot(env Environment, ignore IgnoreSet, report func(error)) []Fields {
	if env == nil {
		return nil
	}

	var sources []Fields

	if !ignore.Has(SourceNavigator) {
		if nav := env.Navigator(); nav != nil {
			sources = append(sources, nav)
		}
	}

	if !ignore.Has(SourceDocument) {
		if doc := env.Document(); doc != nil {
			sources = append(sources, documentFields(doc, report))
		}
	}

	if !ignore.Has(SourcePerformance) {
		if perf := env.Performance(); perf != nil {
			if !ignore.Has(SourceTiming) {
				if timing := perf.Timing(); timing != nil {
					sources = append(sources, timing)
				}
			}
			if !ignore.Has(SourceMemory) {
				if memory := perf.Memory(); memory != nil {
					sources = append(sources, memory)
				}
			}
		}
	}

	return sources
}

func documentFields(doc Document, report func(error)) Fields {
	fields := Fields{
		"charset":    doc.Charset(),
		"encoding":   doc.InputEncoding(),
		"readyState": doc.ReadyState(),
		"referrer":   doc.Referrer(),
		"url":        doc.URL(),
		"visibility": doc.VisibilityState(),
	}

	domain, err := doc.Domain()
	if err != nil {
		if report != nil {
			report(err)
		}
	} else {
		fields["domain"] = domain
	}

	return fields
}
