package csvimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRow(t *testing.T) {
	rules := []FieldRule{
		Field("project_id").Required().Int().Positive().Build(),
		Field("stand_name").Required().MaxLength(5).Build(),
		Field("price").Decimal().Positive().Build(),
		Field("size").Custom(func(v string) error {
			if !strings.HasSuffix(v, "m2") {
				return errors.New("must end with m2")
			}
			return nil
		}).Build(),
	}

	valid := &Row{LineNumber: 2, Data: map[string]string{"project_id": "1", "stand_name": "A1", "price": "1500.50", "size": "300m2"}}
	assert.Empty(t, ValidateRow(valid, rules))

	optional := &Row{LineNumber: 3, Data: map[string]string{"project_id": "1", "stand_name": "A1"}}
	assert.Empty(t, ValidateRow(optional, rules))

	bad := &Row{LineNumber: 4, Data: map[string]string{"project_id": "0", "stand_name": "TOO-LONG", "price": "abc", "size": "300"}}
	errs := ValidateRow(bad, rules)
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	assert.Equal(t, []string{
		"Row 4: project_id must be greater than 0",
		"Row 4: stand_name must be at most 5 characters",
		`Row 4: price must be a number, got "abc"`,
		"Row 4: size must end with m2",
	}, messages)

	missing := &Row{LineNumber: 5, Data: map[string]string{}}
	errs = ValidateRow(missing, rules)
	assert.Len(t, errs, 2)
	assert.Equal(t, "project_id", errs[0].Column)
}
