// Package errs defines the analyser's error taxonomy (spec.md §7). Each
// sentinel is wrapped with fmt.Errorf("...: %w", ...) at the point of
// failure so callers can classify with errors.Is while still getting a
// descriptive message.
package errs

import "errors"

var (
	// ErrNoClassFile: dependency resolution miss. Logged and downgraded to
	// non-fatal within the dependency closure walk; fatal anywhere else.
	ErrNoClassFile = errors.New("no class file")

	// ErrSourceIO: stat/read failure of a source file. Fatal for the class.
	ErrSourceIO = errors.New("source io error")

	// ErrParse: the external ClassFile compiler failed. Fatal for that
	// class, aborts the run.
	ErrParse = errors.New("parse error")

	// ErrMetaWriteDuplicate: saveMeta called twice for the same class in
	// the same run. Programmer error; must throw loudly.
	ErrMetaWriteDuplicate = errors.New("meta write duplicate")

	// ErrDbParse: the DB file could not be parsed. The run aborts before
	// any compile.
	ErrDbParse = errors.New("db parse error")
)
