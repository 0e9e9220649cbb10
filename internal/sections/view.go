package sections

import "html/template"

// SummaryTitle 摘要块标题
const SummaryTitle = "摘要"

// Block 一个渲染好的展示块
type Block struct {
	Key   string        `json:"key"`
	Title string        `json:"title"`
	Text  string        `json:"text"`
	HTML  template.HTML `json:"html"`
}

// View AI 分析的展示结构
type View struct {
	Blocks   []Block `json:"blocks"`
	Fallback bool    `json:"fallback"` // 未识别出任何章节，整段显示
}

// BuildView 拆分并渲染 AI 分析文本，一个章节都识别不到时整段渲染
func BuildView(text string) View {
	if text == "" {
		return View{}
	}
	s := Extract(text)
	if s.Empty() {
		return View{
			Fallback: true,
			Blocks:   []Block{{Key: "full", Text: text, HTML: Render(text)}},
		}
	}

	var v View
	if s.Summary != "" {
		v.Blocks = append(v.Blocks, Block{Key: "summary", Title: SummaryTitle, Text: s.Summary, HTML: Render(s.Summary)})
	}
	for _, rule := range DefaultRules {
		body := s.Get(rule.Name)
		if body == "" {
			continue
		}
		v.Blocks = append(v.Blocks, Block{Key: string(rule.Name), Title: rule.Title, Text: body, HTML: Render(body)})
	}
	return v
}
