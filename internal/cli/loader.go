package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gview/internal/compiler"
)

// LoadMode controls how errors are handled during traversal loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// NamedTraversal is one compiled traversal of a CUE source.
type NamedTraversal struct {
	Name      string
	Traversal compiler.Traversal
	Context   *compiler.Context
}

// LoadResult contains the traversals loaded from a file or directory.
type LoadResult struct {
	Traversals []NamedTraversal
	CUEValue   cue.Value // The raw CUE value for additional processing
	FileCount  int       // Number of CUE files found
}

// Find returns the traversal called name.
func (r *LoadResult) Find(name string) (NamedTraversal, bool) {
	for _, t := range r.Traversals {
		if t.Name == name {
			return t, true
		}
	}
	return NamedTraversal{}, false
}

// LoadError represents an error that occurred during traversal loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadTraversals loads and compiles the traversals of a CUE file or
// directory. Named traversals live under a top-level traversal struct:
//
//	traversal: knows: steps: [{op: "V"}, {op: "out", labels: ["knows"]}]
//
// A source with a top-level steps list instead holds one traversal named
// after the file or directory.
func LoadTraversals(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("traversal source not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing traversal source: %v", err)}}
	}

	dir, args := path, []string{"."}
	cueFiles := []string{path}
	if info.IsDir() {
		if cueFiles, err = FindCUEFiles(path); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}}
		}
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	var sources []traversalSource
	if tv := value.LookupPath(cue.ParsePath("traversal")); tv.Exists() {
		iter, iterErr := tv.Fields()
		if iterErr != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating traversals: %v", iterErr)}}
		}
		for iter.Next() {
			sources = append(sources, traversalSource{iter.Label(), iter.Value()})
		}
	} else if value.LookupPath(cue.ParsePath("steps")).Exists() {
		name := strings.TrimSuffix(filepath.Base(path), ".cue")
		sources = append(sources, traversalSource{name, value})
	}

	var errs []error
	for _, src := range sources {
		nt, err := compileNamed(src.name, src.value)
		if err != nil {
			errs = append(errs, convertCompileError(err, "traversal."+src.name, src.value.Pos()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Traversals = append(result.Traversals, nt)
	}

	if len(sources) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no traversals found"})
	}
	return result, errs
}

type traversalSource struct {
	name  string
	value cue.Value
}

func compileNamed(name string, v cue.Value) (NamedTraversal, error) {
	t, err := compiler.CompileTraversal(v)
	if err != nil {
		return NamedTraversal{}, err
	}
	c, err := compiler.Compile(t)
	if err != nil {
		return NamedTraversal{}, err
	}
	return NamedTraversal{Name: name, Traversal: t, Context: c}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError. Step errors
// carry no position of their own; they get the traversal's.
func convertCompileError(err error, context string, fallback token.Pos) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		pos := compileErr.Pos
		if !pos.IsValid() {
			pos = fallback
		}
		msg := compileErr.Message
		if compileErr.Field != "" {
			msg = compileErr.Field + ": " + msg
		}
		return &LoadError{
			Code:    MapCompileErrorCode(compileErr.Code),
			Message: fmt.Sprintf("%s: %s", context, msg),
			Pos:     pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
		Pos:     fallback,
	}
}

// MapCompileErrorCode maps a compiler error code to a CLI error code.
func MapCompileErrorCode(code compiler.ErrorCode) string {
	switch code {
	case compiler.ErrCodeSyntax:
		return ErrCodeSyntax
	case compiler.ErrCodeInvalidArgument:
		return ErrCodeInvalidArgument
	case compiler.ErrCodeNotImplemented:
		return ErrCodeNotImplemented
	case compiler.ErrCodeInvalidStep:
		return ErrCodeInvalidStep
	case compiler.ErrCodePivot:
		return ErrCodeInvalidPivot
	case compiler.ErrCodeUnboundVariable:
		return ErrCodeUnbound
	default:
		return ErrCodeGeneric
	}
}
