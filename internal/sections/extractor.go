// Package sections 将 AI 生成的分析文本按标题拆分为摘要和几个固定章节
package sections

import (
	"regexp"
	"strings"
)

// Name 章节名
type Name string

const (
	TechnicalAnalysis   Name = "technicalAnalysis"
	FundamentalAnalysis Name = "fundamentalAnalysis"
	Recommendation      Name = "recommendation"
	Risks               Name = "risks"
)

// Rule 章节识别规则：标题包含任一同义词即匹配（不区分大小写）
type Rule struct {
	Name     Name
	Title    string
	Synonyms []string
}

// DefaultRules 默认规则，按顺序独立匹配
var DefaultRules = []Rule{
	{Name: TechnicalAnalysis, Title: "技术分析", Synonyms: []string{"技术分析", "趋势分析", "Technical Analysis"}},
	{Name: FundamentalAnalysis, Title: "基本面分析", Synonyms: []string{"基本面分析", "基本面", "成交量分析", "Fundamental Analysis"}},
	{Name: Recommendation, Title: "投资建议", Synonyms: []string{"投资建议", "操作建议", "建议", "Recommendation"}},
	{Name: Risks, Title: "风险提示", Synonyms: []string{"风险提示", "风险分析", "风险", "Risks"}},
}

// Sections 拆分结果，空字符串表示缺失
type Sections struct {
	Summary             string `json:"summary,omitempty"`
	TechnicalAnalysis   string `json:"technicalAnalysis,omitempty"`
	FundamentalAnalysis string `json:"fundamentalAnalysis,omitempty"`
	Recommendation      string `json:"recommendation,omitempty"`
	Risks               string `json:"risks,omitempty"`
}

// Get 按章节名取内容
func (s Sections) Get(name Name) string {
	switch name {
	case TechnicalAnalysis:
		return s.TechnicalAnalysis
	case FundamentalAnalysis:
		return s.FundamentalAnalysis
	case Recommendation:
		return s.Recommendation
	case Risks:
		return s.Risks
	}
	return ""
}

func (s *Sections) set(name Name, body string) {
	switch name {
	case TechnicalAnalysis:
		s.TechnicalAnalysis = body
	case FundamentalAnalysis:
		s.FundamentalAnalysis = body
	case Recommendation:
		s.Recommendation = body
	case Risks:
		s.Risks = body
	}
}

// Empty 五个字段都缺失
func (s Sections) Empty() bool {
	return s.Summary == "" && s.TechnicalAnalysis == "" && s.FundamentalAnalysis == "" &&
		s.Recommendation == "" && s.Risks == ""
}

type heading struct {
	line  int
	level int
	text  string
}

// Extract 使用默认规则拆分文本
func Extract(text string) Sections {
	return ExtractWith(text, DefaultRules)
}

// ExtractWith 使用指定规则拆分文本
//
// 没有任何标题的文本不产生摘要，整段交由兜底渲染。
func ExtractWith(text string, rules []Rule) Sections {
	var out Sections

	lines := splitLines(text)
	var heads []heading
	fence := ""
	for i, line := range lines {
		// 代码块中的 # 行不是标题
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			switch {
			case fence == "":
				fence = m[1]
			case m[1][0] == fence[0] && len(m[1]) >= len(fence):
				fence = ""
			}
			continue
		}
		if fence != "" {
			continue
		}
		if level, title, ok := parseHeading(line); ok {
			heads = append(heads, heading{line: i, level: level, text: title})
		}
	}
	if len(heads) == 0 {
		return out
	}

	out.Summary = strings.TrimSpace(strings.Join(lines[:heads[0].line], "\n"))

	for _, rule := range rules {
		for hi, h := range heads {
			if !matches(h.text, rule.Synonyms) {
				continue
			}
			end := len(lines)
			if hi+1 < len(heads) {
				end = heads[hi+1].line
			}
			body := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))
			if body != "" {
				out.set(rule.Name, body)
			}
			// 只取第一个匹配的标题
			break
		}
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// atxHeadingRe # 标题：最多三个空格缩进，1-6 个 #，之后是空白或行尾
var (
	atxHeadingRe  = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	closingHashRe = regexp.MustCompile(`(^|[ \t]+)#+$`)
	fenceRe       = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
)

// parseHeading 返回级别和去掉标记后的标题文字，规则与 Render 的标题解析一致
func parseHeading(line string) (int, string, bool) {
	m := atxHeadingRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	title := closingHashRe.ReplaceAllString(m[2], "")
	return len(m[1]), strings.TrimSpace(title), true
}

func matches(title string, synonyms []string) bool {
	lower := strings.ToLower(title)
	for _, syn := range synonyms {
		if strings.Contains(lower, strings.ToLower(syn)) {
			return true
		}
	}
	return false
}
