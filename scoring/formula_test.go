package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalFormulaArithmetic(t *testing.T) {
	value, err := EvalFormula("1 + 2 * 3", nil)
	assert.Nil(t, err)
	assert.Equal(t, 7.0, value)

	value, err = EvalFormula("(1 + 2) * 3", nil)
	assert.Nil(t, err)
	assert.Equal(t, 9.0, value)

	value, err = EvalFormula("10 - 4 / 2", nil)
	assert.Nil(t, err)
	assert.Equal(t, 8.0, value)

	value, err = EvalFormula("-3 + 5", nil)
	assert.Nil(t, err)
	assert.Equal(t, 2.0, value)
}

func TestEvalFormulaVariables(t *testing.T) {
	vars := map[string]float64{"PUB": 4, "TEACHING_HOURS": 120}
	value, err := EvalFormula("PUB * 2 + TEACHING_HOURS / 60", vars)
	assert.Nil(t, err)
	assert.Equal(t, 10.0, value)
}

func TestEvalFormulaUnboundVariableIsZero(t *testing.T) {
	value, err := EvalFormula("MISSING + 5", map[string]float64{})
	assert.Nil(t, err)
	assert.Equal(t, 5.0, value)
}

func TestEvalFormulaDivisionByZero(t *testing.T) {
	_, err := EvalFormula("1 / 0", nil)
	assert.NotNil(t, err)

	_, err = EvalFormula("PUB / COUNT", map[string]float64{"PUB": 3})
	assert.NotNil(t, err)
}

func TestEvalFormulaSyntaxErrors(t *testing.T) {
	for _, expression := range []string{
		"1 +",
		"(1 + 2",
		"1 2",
		"1 $ 2",
		"* 3",
		"",
		"1.2.3",
	} {
		_, err := EvalFormula(expression, nil)
		assert.NotNil(t, err, "expression %q should not parse", expression)
	}
}
