package benchmarks

import (
	"fmt"
	"runtime"
	"sort"
	"testing"

	"github.com/metaschema-go/metaschema/internal/loader"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/nodeitem"
	"github.com/metaschema-go/metaschema/internal/validation"
)

// Memory target for validating a 5000 control document
const MaxMemoryUsage_Per5000Controls = 100 // MB

func loadSchema(tb testing.TB) *model.Schema {
	tb.Helper()
	schema, err := loader.New().LoadSchema(CatalogSchema)
	if err != nil {
		tb.Fatalf("failed to load schema: %v", err)
	}
	return schema
}

func parseCatalog(tb testing.TB, schema *model.Schema, controls int) *nodeitem.Node {
	tb.Helper()
	doc, err := loader.New().ParseDocument("generated.json", GenerateCatalog(controls), loader.FormatJSON, schema, nil)
	if err != nil {
		tb.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

func expressionNames() []string {
	names := make([]string, 0, len(Expressions))
	for name := range Expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BenchmarkCompile benchmarks compiling each representative expression
func BenchmarkCompile(b *testing.B) {
	for _, name := range expressionNames() {
		text := Expressions[name]
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := metapath.Compile(text); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEvaluate benchmarks evaluating each expression over a 1000
// control document
func BenchmarkEvaluate(b *testing.B) {
	doc := parseCatalog(b, loadSchema(b), 1000)
	dyn := metapath.NewDynamicContext(metapath.NewStaticContext())

	for _, name := range expressionNames() {
		expr := metapath.MustCompile(Expressions[name])
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := expr.Evaluate(dyn, doc); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkParseDocument benchmarks building node trees of growing size
func BenchmarkParseDocument(b *testing.B) {
	schema := loadSchema(b)
	for _, controls := range []int{10, 100, 1000} {
		data := GenerateCatalog(controls)
		b.Run(fmt.Sprintf("%d_controls", controls), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := loader.New().ParseDocument("generated.json", data, loader.FormatJSON, schema, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkValidate benchmarks a full validation pass, including the
// index and index-has-key constraints
func BenchmarkValidate(b *testing.B) {
	schema := loadSchema(b)
	for _, controls := range []int{10, 100, 1000} {
		doc := parseCatalog(b, schema, controls)
		b.Run(fmt.Sprintf("%d_controls", controls), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				collector, err := validation.Run(doc)
				if err != nil {
					b.Fatal(err)
				}
				if !collector.IsPassing() {
					b.Fatalf("unexpected findings: %v", collector.Findings())
				}
			}
		})
	}
}

// TestMemory_5000Controls tests memory usage of parsing and validating a
// 5000 control document
func TestMemory_5000Controls(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory test in short mode")
	}
	schema := loadSchema(t)

	runtime.GC()
	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)

	doc := parseCatalog(t, schema, 5000)
	collector, err := validation.Run(doc)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if n := len(collector.Findings()); n != 0 {
		t.Fatalf("expected no findings, got %d: %v", n, collector.Findings()[0])
	}

	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	allocatedMB := float64(memAfter.TotalAlloc-memBefore.TotalAlloc) / 1024 / 1024
	t.Logf("Total allocated: %.2f MB", allocatedMB)
	if allocatedMB > MaxMemoryUsage_Per5000Controls {
		t.Errorf("Memory usage %.2f MB exceeds target of %d MB", allocatedMB, MaxMemoryUsage_Per5000Controls)
	}
	runtime.KeepAlive(doc)
}
