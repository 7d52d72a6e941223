package textops

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const summaryTextLimit = 20

// Summary 生成操作流水线的可读描述，写入版本记录的 operation_description。
func Summary(ops []Operation) string {
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		parts = append(parts, describe(op))
	}
	return strings.Join(parts, "; ")
}

func describe(op Operation) string {
	switch o := op.(type) {
	case Prepend:
		return fmt.Sprintf("Prepend '%s'", truncate(o.Text))
	case Append:
		return fmt.Sprintf("Append '%s'", truncate(o.Text))
	case FindReplace:
		return fmt.Sprintf("Replace '%s' with '%s'%s", o.Find, o.Replace, regexSuffix(o.UseRegex))
	case Trim:
		return "Trim whitespace"
	case CaseConvert:
		return fmt.Sprintf("Convert to %scase", o.Case)
	case RemovePattern:
		return fmt.Sprintf("Remove pattern '%s'%s", o.Pattern, regexSuffix(o.IsRegex))
	default:
		panic(fmt.Sprintf("textops: unhandled operation %T", op))
	}
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= summaryTextLimit {
		return text
	}
	return string([]rune(text)[:summaryTextLimit]) + "..."
}

func regexSuffix(regex bool) string {
	if regex {
		return " (regex)"
	}
	return ""
}
