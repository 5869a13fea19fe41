package loader

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed shape.cue
var shapeSchema string

// Shape definitions in the embedded schema
const (
	shapeDescription   = "#Description"
	shapeConstraintSet = "#ConstraintSet"
)

// ShapeError lists every problem found when checking a decoded file against
// its expected shape
type ShapeError struct {
	File     string
	Problems []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: invalid shape:\n  %s", e.File, strings.Join(e.Problems, "\n  "))
}

// shapeChecker unifies decoded documents with the embedded CUE definitions.
// A cue.Context is not safe for concurrent use, so checks are serialized.
type shapeChecker struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

var (
	checkerOnce sync.Once
	checker     *shapeChecker
)

func defaultChecker() *shapeChecker {
	checkerOnce.Do(func() {
		ctx := cuecontext.New()
		schema := ctx.CompileString(shapeSchema, cue.Filename("shape.cue"))
		if err := schema.Err(); err != nil {
			panic(fmt.Sprintf("failed to compile embedded shape schema: %v", err))
		}
		checker = &shapeChecker{ctx: ctx, schema: schema}
	})
	return checker
}

// check validates canonical JSON data against the named definition
func (c *shapeChecker) check(file, definition string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	def := c.schema.LookupPath(cue.ParsePath(definition))
	if err := def.Err(); err != nil {
		return fmt.Errorf("shape %s: %w", definition, err)
	}

	value := c.ctx.CompileBytes(data, cue.Filename(file))
	if err := value.Err(); err != nil {
		return shapeError(file, err)
	}

	res := def.Unify(value)
	if err := res.Validate(cue.Concrete(true)); err != nil {
		return shapeError(file, err)
	}
	return nil
}

func shapeError(file string, err error) error {
	var problems []string
	for _, e := range cueerrors.Errors(err) {
		problems = append(problems, e.Error())
	}
	if len(problems) == 0 {
		problems = append(problems, err.Error())
	}
	return &ShapeError{File: file, Problems: problems}
}
