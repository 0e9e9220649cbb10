package sections

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var headingClass = map[int]string{
	1: "text-xl font-bold mt-4 mb-2",
	2: "text-lg font-bold mt-3 mb-2",
	3: "text-md font-semibold mt-2 mb-1",
}

const listItemClass = "ml-4"

// md 只识别 # 标题，与章节拆分的标题规则一致；不启用 setext 标题
var md = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(
			util.Prioritized(parser.NewThematicBreakParser(), 200),
			util.Prioritized(parser.NewListParser(), 300),
			util.Prioritized(parser.NewListItemParser(), 400),
			util.Prioritized(parser.NewCodeBlockParser(), 500),
			util.Prioritized(parser.NewATXHeadingParser(), 600),
			util.Prioritized(parser.NewFencedCodeBlockParser(), 700),
			util.Prioritized(parser.NewBlockquoteParser(), 800),
			util.Prioritized(parser.NewHTMLBlockParser(), 900),
			util.Prioritized(parser.NewParagraphParser(), 1000),
		),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
		parser.WithParagraphTransformers(parser.DefaultParagraphTransformers()...),
		parser.WithASTTransformers(util.Prioritized(classTransformer{}, 100)),
	)),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// classTransformer 给标题和列表项加上页面样式
type classTransformer struct{}

func (classTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			if class, ok := headingClass[n.Level]; ok {
				n.SetAttributeString("class", []byte(class))
			}
		case *ast.ListItem:
			n.SetAttributeString("class", []byte(listItemClass))
		}
		return ast.WalkContinue, nil
	})
}

// Render 将 markdown 转为 HTML
//
// 先整体转义再解析，原文中的 < > & 只会以文字形式出现。换行保留为 <br>。
func Render(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(html.EscapeString(src)), &buf); err != nil {
		return template.HTML(html.EscapeString(src))
	}
	return template.HTML(strings.TrimSpace(buf.String()))
}

// PlainText 去掉标记符号，用于命令行输出
func PlainText(src string) string {
	source := []byte(html.EscapeString(src))
	doc := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	lineStart := true
	newline := func() {
		if !lineStart {
			b.WriteByte('\n')
			lineStart = true
		}
	}
	write := func(p []byte) {
		if len(p) > 0 {
			b.Write(p)
			lineStart = false
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.ListItem:
			newline()
			b.WriteString("• ")
		case *ast.Paragraph, *ast.Heading, *ast.ThematicBreak:
			newline()
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			newline()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				write(bytes.TrimRight(seg.Value(source), "\n"))
				newline()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				newline()
			}
		case *ast.String:
			write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return html.UnescapeString(strings.TrimRight(b.String(), "\n"))
}
