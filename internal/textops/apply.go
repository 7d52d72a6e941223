package textops

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Apply 对文本执行单个操作。
func Apply(text string, op Operation) string {
	switch o := op.(type) {
	case Prepend:
		return o.Text + text
	case Append:
		return text + o.Text
	case FindReplace:
		if !o.UseRegex && o.CaseSensitive {
			return strings.ReplaceAll(text, o.Find, o.Replace)
		}
		re := o.matcher()
		if re == nil {
			return text
		}
		if o.UseRegex {
			return re.ReplaceAllString(text, o.Replace)
		}
		return re.ReplaceAllLiteralString(text, o.Replace)
	case Trim:
		return strings.Join(strings.Fields(text), " ")
	case CaseConvert:
		return convertCase(text, o.Case)
	case RemovePattern:
		if !o.IsRegex {
			return strings.ReplaceAll(text, o.Pattern, "")
		}
		re := o.matcher()
		if re == nil {
			return text
		}
		return re.ReplaceAllString(text, "")
	default:
		panic(fmt.Sprintf("textops: unhandled operation %T", op))
	}
}

// ApplyAll 按数组顺序依次执行，每一步消费上一步的输出。
func ApplyAll(text string, ops []Operation) string {
	for _, op := range ops {
		text = Apply(text, op)
	}
	return text
}

func convertCase(text string, caseType CaseType) string {
	switch caseType {
	case CaseUpper:
		return cases.Upper(language.Und).String(text)
	case CaseLower:
		return cases.Lower(language.Und).String(text)
	case CaseTitle:
		return cases.Title(language.Und).String(text)
	case CaseSentence:
		segments := strings.Split(text, ".")
		sentences := make([]string, 0, len(segments))
		for _, segment := range segments {
			trimmed := strings.TrimSpace(segment)
			if trimmed == "" {
				continue
			}
			sentences = append(sentences, capitalize(trimmed))
		}
		return strings.Join(sentences, ". ")
	}
	return text
}

// capitalize 将首字符大写，其余部分转为小写。
func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + cases.Lower(language.Und).String(s[size:])
}
