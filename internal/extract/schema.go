package extract

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/hoa-financials/internal/model"
)

// recordShape lists the fields an oracle record of one kind must carry.
type recordShape struct {
	required []string
	numbers  []string
	extra    map[string]any
}

var shapes = map[model.Kind]recordShape{
	model.KindBalanceSheet: {
		required: []string{"account_code", "account_name", "current_balance"},
		numbers:  []string{"current_balance", "prior_balance", "change"},
	},
	model.KindDisbursement: {
		required: []string{"vendor", "amount"},
		numbers:  []string{"amount", "check_amount"},
	},
	model.KindInvoice: {
		required: []string{"amount"},
		numbers:  []string{"amount"},
		extra: map[string]any{
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"amount": map[string]any{"type": "number"}},
				},
			},
		},
	},
	model.KindBankReconciliation: {
		required: []string{"account_code", "balance_per_bank", "ending_balance_gl"},
		numbers: []string{
			"balance_per_bank", "total_outstanding_deposits", "total_outstanding_checks",
			"ending_balance_gl", "difference",
		},
	},
	model.KindAccountsReceivable: {
		required: []string{"account_id", "total_balance"},
		numbers:  []string{"day_30", "day_31_60", "day_61_90", "day_91_120", "day_120_plus", "total_balance"},
	},
	model.KindIncomeStatement: {
		required: []string{"account_name", "ytd_actual"},
		numbers: []string{
			"current_actual", "current_budget", "current_variance", "ytd_actual",
			"ytd_budget", "ytd_variance", "annual_budget", "budget_remaining",
		},
	},
	model.KindExpenseTrend: {
		required: []string{"account_name", "full_year_actual"},
		numbers: []string{
			"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov",
			"full_year_actual", "total_budget",
		},
	},
}

func (s recordShape) schemaMap() map[string]any {
	props := map[string]any{}
	for _, n := range s.numbers {
		props[n] = map[string]any{"type": "number"}
	}
	for k, v := range s.extra {
		props[k] = v
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"required":   s.required,
			"properties": props,
		},
	}
}

var (
	compileOnce sync.Once
	compiled    map[model.Kind]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	compiled = make(map[model.Kind]*jsonschema.Schema, len(shapes))
	for kind, shape := range shapes {
		b, err := json.Marshal(shape.schemaMap())
		if err != nil {
			compileErr = eris.Wrapf(err, "extract: marshal schema %s", kind)
			return
		}
		url := string(kind) + ".json"
		c := jsonschema.NewCompiler()
		if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
			compileErr = eris.Wrapf(err, "extract: add schema %s", kind)
			return
		}
		sch, err := c.Compile(url)
		if err != nil {
			compileErr = eris.Wrapf(err, "extract: compile schema %s", kind)
			return
		}
		compiled[kind] = sch
	}
}

// validate checks an oracle document against the record schema for kind.
func validate(kind model.Kind, raw json.RawMessage) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}
	sch, ok := compiled[kind]
	if !ok {
		return eris.Errorf("extract: no schema for %s", kind)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "extract: decode oracle output")
	}
	if err := sch.Validate(v); err != nil {
		return eris.Wrapf(err, "extract: %s output does not match schema", kind)
	}
	return nil
}
