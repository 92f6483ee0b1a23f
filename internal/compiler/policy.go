package compiler

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	mast "github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"cardsmith/internal/card"
)

//go:embed card_policy.mg
var cardPolicy string

var violationPred = mast.PredicateSym{Symbol: "violation", Arity: 3}

// policyEngine holds the analyzed admission program. Analysis happens once
// per process; each compile evaluates against a throwaway fact store so
// runs cannot observe each other.
type policyEngine struct {
	info *analysis.ProgramInfo
}

var (
	policyOnce sync.Once
	policyEng  *policyEngine
	policyErr  error
)

func loadPolicy() (*policyEngine, error) {
	policyOnce.Do(func() {
		unit, err := parse.Unit(strings.NewReader(cardPolicy))
		if err != nil {
			policyErr = fmt.Errorf("parse card_policy.mg: %w", err)
			return
		}
		info, err := analysis.AnalyzeOneUnit(unit, nil)
		if err != nil {
			policyErr = fmt.Errorf("analyze card_policy.mg: %w", err)
			return
		}
		policyEng = &policyEngine{info: info}
	})
	return policyEng, policyErr
}

// violations evaluates the policy rules over the extracted facts and
// returns one finding per derived violation.
func (p *policyEngine) violations(facts []srcFact) ([]card.CompileFinding, error) {
	store := factstore.NewSimpleInMemoryStore()
	for _, f := range facts {
		store.Add(mast.NewAtom(f.pred, f.args...))
	}
	if _, err := mengine.EvalProgramWithStats(p.info, store); err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}

	var findings []card.CompileFinding
	err := store.GetFacts(mast.NewQuery(violationPred), func(a mast.Atom) error {
		findings = append(findings, card.CompileFinding{
			Rule:   stringTerm(a.Args[0]),
			Detail: stringTerm(a.Args[1]),
			Line:   numberTerm(a.Args[2]),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read violations: %w", err)
	}
	return findings, nil
}

func stringTerm(t mast.BaseTerm) string {
	if c, ok := t.(mast.Constant); ok {
		switch c.Type {
		case mast.StringType, mast.NameType:
			return c.Symbol
		}
	}
	return fmt.Sprint(t)
}

func numberTerm(t mast.BaseTerm) int {
	if c, ok := t.(mast.Constant); ok && c.Type == mast.NumberType {
		return int(c.NumValue)
	}
	return 0
}
