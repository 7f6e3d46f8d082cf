package feature

import (
	"fmt"

	"featurert/pkg/logging"
)

type acceptor interface {
	Accept()
	Reject(err error)
}

// Resolve activates as many of toResolve as possible on top of resolved.
//
// Passes repeat while they make progress. Once a pass makes none, one more
// pass runs with yielding set. Features resolve in the order they succeed;
// that order is returned. Features still unresolved at the end are returned
// with their last error, after their dependency's Reject callbacks run.
func Resolve(h Host, toResolve, resolved []Feature) ([]Feature, map[Feature]error) {
	pending := append([]Feature(nil), toResolve...)
	current := append([]Feature(nil), resolved...)
	var activated []Feature
	failures := make(map[Feature]error)

	progressed, yielding := true, false
	for progressed || yielding {
		before := len(pending)
		remaining := pending[:0]
		for _, f := range pending {
			delete(failures, f)
			dep := f.Dependency()
			if dep == nil {
				dep = None()
			}
			if err := resolveOne(dep, h, current, yielding); err != nil {
				failures[f] = err
				remaining = append(remaining, f)
				continue
			}
			current = append(current, f)
			activated = append(activated, f)
			if a, ok := dep.(acceptor); ok {
				if err := guard(a.Accept); err != nil {
					logging.Error("Registrar", err, "resolve callback of %s failed, ignoring", Name(f))
				}
			}
		}
		pending = remaining

		progressed = len(pending) != before
		yielding = !progressed && !yielding
	}

	for _, f := range pending {
		if a, ok := f.Dependency().(acceptor); ok {
			err := failures[f]
			if cerr := guard(func() { a.Reject(err) }); cerr != nil {
				logging.Error("Registrar", cerr, "fail callback of %s failed, ignoring", Name(f))
			}
		}
	}
	return activated, failures
}

func resolveOne(dep Dependency, h Host, resolved []Feature, yielding bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dependency panicked: %v", r)
		}
	}()
	return dep.Resolve(h, resolved, yielding)
}

func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
