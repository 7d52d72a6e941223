package textops

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidOperation 表示批量编辑操作缺少必填字段或参数非法。
var ErrInvalidOperation = errors.New("invalid bulk edit operation")

// Kind 标识操作种类，取值与接口中的 operation_type 一致。
type Kind string

const (
	KindPrepend       Kind = "prepend"
	KindAppend        Kind = "append"
	KindFindReplace   Kind = "find_replace"
	KindTrim          Kind = "trim"
	KindCaseConvert   Kind = "case_convert"
	KindRemovePattern Kind = "remove_pattern"
)

// CaseType 为大小写转换的目标形式。
type CaseType string

const (
	CaseUpper    CaseType = "upper"
	CaseLower    CaseType = "lower"
	CaseTitle    CaseType = "title"
	CaseSentence CaseType = "sentence"
)

// Operation 是封闭的操作集合，只有本包内的类型可以实现。
type Operation interface {
	Kind() Kind
	operation()
}

// Prepend 在文本前添加固定内容。
type Prepend struct {
	Text string
}

// Append 在文本后添加固定内容。
type Append struct {
	Text string
}

// FindReplace 执行字面量或正则替换。
type FindReplace struct {
	Find          string
	Replace       string
	UseRegex      bool
	CaseSensitive bool

	re *regexp.Regexp
}

// Trim 去除首尾空白并把内部连续空白压缩为单个空格。
type Trim struct{}

// CaseConvert 做大小写转换。
type CaseConvert struct {
	Case CaseType
}

// RemovePattern 删除所有匹配的子串或正则。
type RemovePattern struct {
	Pattern string
	IsRegex bool

	re *regexp.Regexp
}

func (Prepend) Kind() Kind       { return KindPrepend }
func (Append) Kind() Kind        { return KindAppend }
func (FindReplace) Kind() Kind   { return KindFindReplace }
func (Trim) Kind() Kind          { return KindTrim }
func (CaseConvert) Kind() Kind   { return KindCaseConvert }
func (RemovePattern) Kind() Kind { return KindRemovePattern }

func (Prepend) operation()       {}
func (Append) operation()        {}
func (FindReplace) operation()   {}
func (Trim) operation()          {}
func (CaseConvert) operation()   {}
func (RemovePattern) operation() {}

// NewFindReplace 构造替换操作，并预编译所需的匹配表达式。
// 不区分大小写的字面量替换同样走正则，以保留匹配之外的原始大小写。
func NewFindReplace(find, replace string, useRegex, caseSensitive bool) (FindReplace, error) {
	op := FindReplace{Find: find, Replace: replace, UseRegex: useRegex, CaseSensitive: caseSensitive}
	if !useRegex && caseSensitive {
		return op, nil
	}

	expr := find
	if !useRegex {
		expr = regexp.QuoteMeta(find)
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return op, fmt.Errorf("%w: invalid find pattern %q: %v", ErrInvalidOperation, find, err)
	}
	op.re = re
	return op, nil
}

// NewRemovePattern 构造删除操作。
func NewRemovePattern(pattern string, isRegex bool) (RemovePattern, error) {
	op := RemovePattern{Pattern: pattern, IsRegex: isRegex}
	if !isRegex {
		return op, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return op, fmt.Errorf("%w: invalid pattern %q: %v", ErrInvalidOperation, pattern, err)
	}
	op.re = re
	return op, nil
}

func (f FindReplace) matcher() *regexp.Regexp {
	if f.re != nil {
		return f.re
	}
	compiled, err := NewFindReplace(f.Find, f.Replace, f.UseRegex, f.CaseSensitive)
	if err != nil {
		return nil
	}
	return compiled.re
}

func (r RemovePattern) matcher() *regexp.Regexp {
	if r.re != nil {
		return r.re
	}
	compiled, err := NewRemovePattern(r.Pattern, r.IsRegex)
	if err != nil {
		return nil
	}
	return compiled.re
}

// Spec 是操作在 JSON 请求中的形态。
type Spec struct {
	OperationType  Kind     `json:"operation_type"`
	Text           *string  `json:"text,omitempty"`
	Find           *string  `json:"find,omitempty"`
	Replace        *string  `json:"replace,omitempty"`
	UseRegex       bool     `json:"use_regex"`
	CaseSensitive  *bool    `json:"case_sensitive,omitempty"`
	CaseType       CaseType `json:"case_type,omitempty"`
	Pattern        *string  `json:"pattern,omitempty"`
	PatternIsRegex bool     `json:"pattern_is_regex"`
}

// Parse 校验单个操作并转换为对应的 Operation。
func Parse(spec Spec) (Operation, error) {
	switch Kind(strings.TrimSpace(string(spec.OperationType))) {
	case KindPrepend:
		if isBlank(spec.Text) {
			return nil, missingField(KindPrepend, "text")
		}
		return Prepend{Text: *spec.Text}, nil
	case KindAppend:
		if isBlank(spec.Text) {
			return nil, missingField(KindAppend, "text")
		}
		return Append{Text: *spec.Text}, nil
	case KindFindReplace:
		if isBlank(spec.Find) {
			return nil, missingField(KindFindReplace, "find")
		}
		if spec.Replace == nil {
			return nil, missingField(KindFindReplace, "replace")
		}
		caseSensitive := true
		if spec.CaseSensitive != nil {
			caseSensitive = *spec.CaseSensitive
		}
		return NewFindReplace(*spec.Find, *spec.Replace, spec.UseRegex, caseSensitive)
	case KindTrim:
		return Trim{}, nil
	case KindCaseConvert:
		switch spec.CaseType {
		case CaseUpper, CaseLower, CaseTitle, CaseSentence:
			return CaseConvert{Case: spec.CaseType}, nil
		case "":
			return nil, missingField(KindCaseConvert, "case_type")
		default:
			return nil, fmt.Errorf("%w: unsupported case_type %q", ErrInvalidOperation, spec.CaseType)
		}
	case KindRemovePattern:
		if isBlank(spec.Pattern) {
			return nil, missingField(KindRemovePattern, "pattern")
		}
		return NewRemovePattern(*spec.Pattern, spec.PatternIsRegex)
	case "":
		return nil, fmt.Errorf("%w: operation_type is required", ErrInvalidOperation)
	default:
		return nil, fmt.Errorf("%w: unknown operation_type %q", ErrInvalidOperation, spec.OperationType)
	}
}

// ParseAll 按顺序校验整条操作流水线，任一操作非法即整体拒绝。
func ParseAll(specs []Spec) ([]Operation, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: at least one operation is required", ErrInvalidOperation)
	}
	ops := make([]Operation, 0, len(specs))
	for i, spec := range specs {
		op, err := Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func isBlank(value *string) bool {
	return value == nil || *value == ""
}

func missingField(kind Kind, field string) error {
	return fmt.Errorf("%w: %s requires %s", ErrInvalidOperation, kind, field)
}
