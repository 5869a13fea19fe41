package metapath

import (
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/metaschema-go/metaschema/internal/datatype"
)

// StaticContext holds what an expression may depend on at compile time: the
// base URI, the function library and the data types usable in casts. A
// StaticContext is read-only once built and may be shared.
type StaticContext struct {
	BaseURI   *url.URL
	Functions *FunctionLibrary
	DataTypes *datatype.Registry
}

// NewStaticContext returns a static context with the built-in functions and
// data types and no base URI
func NewStaticContext() *StaticContext {
	return &StaticContext{
		Functions: DefaultFunctions(),
		DataTypes: datatype.Default(),
	}
}

// WithBaseURI returns a copy of the context using baseURI
func (s *StaticContext) WithBaseURI(baseURI *url.URL) *StaticContext {
	copied := *s
	copied.BaseURI = baseURI
	return &copied
}

func (s *StaticContext) functions() *FunctionLibrary {
	if s == nil || s.Functions == nil {
		return DefaultFunctions()
	}
	return s.Functions
}

func (s *StaticContext) dataTypes() *datatype.Registry {
	if s == nil || s.DataTypes == nil {
		return datatype.Default()
	}
	return s.DataTypes
}

func (s *StaticContext) baseURI() *url.URL {
	if s == nil {
		return nil
	}
	return s.BaseURI
}

// DynamicContext holds per-run evaluation state. One dynamic context serves
// one validation or query run; it fixes the current date-time for the run
// and caches compiled regular expressions.
type DynamicContext struct {
	static *StaticContext
	now    time.Time

	mu      sync.Mutex
	regexps map[string]*regexp.Regexp
}

// NewDynamicContext creates a dynamic context over static. A nil static
// context is replaced by NewStaticContext().
func NewDynamicContext(static *StaticContext) *DynamicContext {
	if static == nil {
		static = NewStaticContext()
	}
	return &DynamicContext{
		static:  static,
		now:     time.Now(),
		regexps: make(map[string]*regexp.Regexp),
	}
}

// Static returns the static context of the run
func (d *DynamicContext) Static() *StaticContext {
	return d.static
}

// Now returns the instant the run started
func (d *DynamicContext) Now() time.Time {
	return d.now
}

// Regexp compiles pattern once per run
func (d *DynamicContext) Regexp(pattern string) (*regexp.Regexp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if re, ok := d.regexps[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	d.regexps[pattern] = re
	return re, nil
}
