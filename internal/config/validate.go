package config

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSrc string

// ValidationError is a schema violation with its position in the file.
type ValidationError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// A cue.Context is not safe for concurrent use; validation is serialized.
var (
	schemaOnce sync.Once
	schemaMu   sync.Mutex
	cueCtx     *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() {
	cueCtx = cuecontext.New()
	v := cueCtx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compile config schema: %w", err)
		return
	}
	schemaDef = v.LookupPath(cue.ParsePath("#Config"))
	if !schemaDef.Exists() {
		schemaErr = fmt.Errorf("config schema has no #Config")
	}
}

// Validate checks YAML data against the embedded schema.
func Validate(name string, data []byte) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	doc := cueCtx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return formatCUEError(doc, err)
	}

	unified := schemaDef.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(doc, err)
	}
	return nil
}

// formatCUEError keeps the first error, reported against the YAML path
// and position of the offending value.
func formatCUEError(doc cue.Value, err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	path := dataPath(first.Path())
	field := "config"
	if len(path) > 0 {
		field = strings.Join(path, ".")
	}
	ve := &ValidationError{Field: field, Message: message(first)}

	// Disjunction failures list one error per rejected branch.
	if strings.HasSuffix(ve.Message, "disjunction:") {
		var branches []string
		for _, e := range errs[1:] {
			if slices.Equal(dataPath(e.Path()), path) {
				branches = append(branches, message(e))
			}
		}
		if len(branches) > 0 {
			ve.Message += " " + strings.Join(branches, "; ")
		}
	}

	for _, e := range errs {
		if !slices.Equal(dataPath(e.Path()), path) {
			continue
		}
		if pos := dataPos(e); pos.IsValid() {
			ve.Pos = pos
			return ve
		}
	}
	ve.Pos = positionIn(doc, path)
	return ve
}

func message(e errors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

// dataPath drops the schema definition labels that prefix error paths.
func dataPath(path []string) []string {
	for len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return path
}

// dataPos returns the first position of e that lies in the validated file.
func dataPos(e errors.Error) token.Pos {
	for _, pos := range errors.Positions(e) {
		if pos.IsValid() && pos.Filename() != "schema.cue" {
			return pos
		}
	}
	return token.NoPos
}

// positionIn finds the position of path in doc, falling back to the
// closest ancestor that exists, so a missing field reports its parent.
func positionIn(doc cue.Value, path []string) token.Pos {
	for i := len(path); i > 0; i-- {
		sels := make([]cue.Selector, i)
		for j, label := range path[:i] {
			if n, err := strconv.Atoi(label); err == nil {
				sels[j] = cue.Index(n)
			} else {
				sels[j] = cue.Str(label)
			}
		}
		v := doc.LookupPath(cue.MakePath(sels...))
		if !v.Exists() {
			continue
		}
		if pos := v.Pos(); pos.IsValid() {
			return pos
		}
	}
	return token.NoPos
}
