package csvimport

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInt     FieldType = "int"
	FieldTypeDecimal FieldType = "decimal"
)

// FieldRule describes the checks applied to one column.
type FieldRule struct {
	Column    string
	Required  bool
	Type      FieldType
	MaxLength int
	MinValue  *decimal.Decimal
	Custom    func(value string) error
}

// FieldRuleBuilder builds a FieldRule fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: FieldTypeString}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = FieldTypeInt
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = FieldTypeDecimal
	return b
}

func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Positive requires a numeric value greater than zero.
func (b *FieldRuleBuilder) Positive() *FieldRuleBuilder {
	zero := decimal.Zero
	b.rule.MinValue = &zero
	return b
}

func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.Custom = fn
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// ValidateRow applies rules to row and returns every violation.
func ValidateRow(row *Row, rules []FieldRule) []RowError {
	var errs []RowError
	fail := func(column, format string, args ...any) {
		errs = append(errs, RowError{Row: row.LineNumber, Column: column, Message: fmt.Sprintf(format, args...)})
	}

	for _, rule := range rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				fail(rule.Column, "is required")
			}
			continue
		}
		if rule.MaxLength > 0 && len([]rune(value)) > rule.MaxLength {
			fail(rule.Column, "must be at most %d characters", rule.MaxLength)
			continue
		}

		switch rule.Type {
		case FieldTypeInt:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				fail(rule.Column, "must be an integer, got %q", value)
				continue
			}
			if rule.MinValue != nil && decimal.NewFromInt(n).LessThanOrEqual(*rule.MinValue) {
				fail(rule.Column, "must be greater than %s", rule.MinValue.String())
				continue
			}
		case FieldTypeDecimal:
			d, err := decimal.NewFromString(value)
			if err != nil {
				fail(rule.Column, "must be a number, got %q", value)
				continue
			}
			if rule.MinValue != nil && d.LessThanOrEqual(*rule.MinValue) {
				fail(rule.Column, "must be greater than %s", rule.MinValue.String())
				continue
			}
		}

		if rule.Custom != nil {
			if err := rule.Custom(value); err != nil {
				fail(rule.Column, "%s", err.Error())
			}
		}
	}
	return errs
}
