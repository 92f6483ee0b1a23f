// Package runtime turns compiled card blobs into live components. Each
// component owns one interpreter seeded with nothing but the scope
// surface its artifact was compiled against, so card code has no path to
// the filesystem, the network, or the host process beyond the published
// names.
package runtime

import (
	"fmt"

	"github.com/traefik/yaegi/interp"

	"cardsmith/internal/card"
	"cardsmith/internal/compiler"
	"cardsmith/internal/logging"
	"cardsmith/internal/scope"
)

// renderFunc is the boundary type every entry function must satisfy once
// interpreted.
type renderFunc = func(*scope.Card) (string, error)

// Factory instantiates components from compiled code. It is stateless;
// interpreters are never shared between components.
type Factory struct{}

// NewFactory returns a component factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Instantiate evaluates a compiled blob and resolves its entry function.
// All failures come back as *card.InstantiationError with the stage that
// broke: header, scope, eval, or entry. The blob is trusted to the extent
// that it compiled once; everything is still re-checked because stored
// artifacts outlive the build that wrote them.
func (f *Factory) Instantiate(compiledCode string) (*Component, error) {
	entry, version, err := compiler.ParseHeader(compiledCode)
	if err != nil {
		return nil, &card.InstantiationError{Stage: "header", Reason: err.Error()}
	}

	surface, err := scope.ByVersion(version)
	if err != nil {
		return nil, &card.InstantiationError{
			Stage:  "scope",
			Reason: fmt.Sprintf("artifact pinned to scope v%d, host has v%d; recompile the card source", version, scope.CurrentVersion),
		}
	}

	i := interp.New(interp.Options{})
	if err := i.Use(surface.Exports()); err != nil {
		return nil, &card.InstantiationError{Stage: "scope", Reason: fmt.Sprintf("load surface: %v", err)}
	}

	if _, err := i.Eval(compiledCode); err != nil {
		return nil, &card.InstantiationError{Stage: "eval", Reason: err.Error()}
	}

	sym, err := i.Eval("card." + entry)
	if err != nil {
		return nil, &card.InstantiationError{Stage: "entry", Reason: fmt.Sprintf("%s not found after eval: %v", entry, err)}
	}
	render, ok := sym.Interface().(renderFunc)
	if !ok {
		return nil, &card.InstantiationError{
			Stage:  "entry",
			Reason: fmt.Sprintf("%s has type %T, want func(*Card) (string, error)", entry, sym.Interface()),
		}
	}

	logging.RuntimeDebug("instantiated entry=%s scope=v%d", entry, version)
	return &Component{entry: entry, render: render}, nil
}
