package chunker

import (
	"regexp"
	"strings"
)

type UnitKind int

const (
	UnitParagraph UnitKind = iota
	UnitHeading
	UnitList
	UnitCode
	UnitTable
	UnitImage
)

func (k UnitKind) String() string {
	switch k {
	case UnitHeading:
		return "heading"
	case UnitList:
		return "list"
	case UnitCode:
		return "code"
	case UnitTable:
		return "table"
	case UnitImage:
		return "image"
	default:
		return "paragraph"
	}
}

// Unit 语义单元，分块时作为最小的拼接单位
type Unit struct {
	Kind UnitKind
	// Level 标题层级，仅 UnitHeading 有效
	Level int
	Text  string
}

// Atomic 代码块和表格即使超长也不拆分
func (u Unit) Atomic() bool {
	return u.Kind == UnitCode || u.Kind == UnitTable
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+\S`)
	listItemRe = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	imageRe    = regexp.MustCompile(`^!\[[^\]]*\]\([^)]*\)$`)
)

// Normalize 统一换行符为 \n
func Normalize(text string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)
}

// ParseUnits 按文档顺序解析出标题、列表、代码块、表格、图片和普通段落
func ParseUnits(text string) []Unit {
	var (
		units     []Unit
		paragraph []string
		list      []string
		lines     = strings.Split(Normalize(text), "\n")
	)

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		if s := strings.TrimSpace(strings.Join(paragraph, "\n")); s != "" {
			units = append(units, Unit{Kind: UnitParagraph, Text: s})
		}
		paragraph = nil
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		if s := strings.TrimRight(strings.Join(list, "\n"), " \t\n"); s != "" {
			units = append(units, Unit{Kind: UnitList, Text: s})
		}
		list = nil
	}
	flush := func() {
		flushParagraph()
		flushList()
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case isFence(trimmed):
			flush()
			fence := trimmed[:3]
			block := []string{line}
			for i+1 < len(lines) {
				i++
				next := strings.TrimRight(lines[i], " \t")
				block = append(block, next)
				if strings.HasPrefix(strings.TrimSpace(next), fence) {
					break
				}
			}
			units = append(units, Unit{Kind: UnitCode, Text: strings.Join(block, "\n")})

		case headingRe.MatchString(trimmed):
			flush()
			level := strings.IndexFunc(trimmed, func(r rune) bool { return r != '#' })
			units = append(units, Unit{Kind: UnitHeading, Level: level, Text: trimmed})

		case strings.HasPrefix(trimmed, "|"):
			flush()
			block := []string{trimmed}
			for i+1 < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i+1]), "|") {
				i++
				block = append(block, strings.TrimSpace(lines[i]))
			}
			units = append(units, Unit{Kind: UnitTable, Text: strings.Join(block, "\n")})

		case imageRe.MatchString(trimmed):
			flush()
			units = append(units, Unit{Kind: UnitImage, Text: trimmed})

		case listItemRe.MatchString(line):
			flushParagraph()
			list = append(list, line)

		case len(list) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")):
			// 列表项的缩进续行
			list = append(list, line)

		default:
			flushList()
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()

	return units
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}
