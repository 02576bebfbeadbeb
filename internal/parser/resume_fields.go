package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hiring-portal/internal/types"
)

const (
	nameScanLines = 5  // 姓名只在前 5 个非空行中查找
	nameMaxWords  = 4  // 姓名行最多 4 个单词
	maxSkills     = 20 // 技能最多保留 20 项
	maxSkillLines = 10

	linkedInPrefix = "linkedin.com/in/"
)

var (
	nameLineRe  = regexp.MustCompile(`^[A-Za-z\s.\-]+$`)
	nameTokenRe = regexp.MustCompile(`[A-Za-z]+`)
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe     = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nonDigitRe  = regexp.MustCompile(`\D`)
	linkedInRe  = regexp.MustCompile(`(?i)linkedin\.com/in/[A-Za-z0-9\-_%]+`)

	experienceHeadingRe = regexp.MustCompile(`(?i)^(?:professional\s+experience|work\s+experience|experience|work\s+history|employment\s+history)\b\s*:?`)
	educationHeadingRe  = regexp.MustCompile(`(?i)^(?:education(?:al\s+background)?|academics?(?:\s+background)?|qualifications?)\b\s*:?`)
	skillsRe            = regexp.MustCompile(`(?i)\bskills?\b[ \t]*:?[ \t]*`)

	entrySplitRe = regexp.MustCompile(`\n\s*\n`)
	companyRe    = regexp.MustCompile(`(?i)\bat\s+([A-Za-z0-9 \t&.,]+?)[ \t]*(?:\n|\||$)`)
	roleRe       = regexp.MustCompile(`(?i)^([A-Za-z \t&.,]+?)\s*(?:\n|\bat\b|\|)`)
	yearRangeRe  = regexp.MustCompile(`(?i)(\d{4})\s*[-–to]+\s*(\d{4}|present|current)`)
	sentenceEnd  = regexp.MustCompile(`\.(?:\s|$)`)
	skillSplitRe = regexp.MustCompile(`[,•·▪;|\n]`)
)

// sectionHeadings 用于判断一个小节在哪里结束，必须首字母大写
var sectionHeadings = map[string]bool{
	"experience": true, "work experience": true, "professional experience": true,
	"work history": true, "employment history": true,
	"education": true, "educational background": true, "academic": true, "academics": true,
	"academic background": true, "qualification": true, "qualifications": true,
	"skills": true, "skill": true, "technical skills": true, "key skills": true, "core skills": true,
	"projects": true, "certifications": true, "certificates": true, "summary": true,
	"profile": true, "objective": true, "awards": true, "achievements": true, "languages": true,
	"interests": true, "hobbies": true, "publications": true, "references": true,
	"contact": true, "personal details": true, "training": true, "internships": true,
}

// degreeVocabulary 学历词表，按匹配优先级排列
var degreeVocabulary = []struct {
	canonical string
	pattern   string
}{
	{"B.Tech", `b\.?\s?tech`},
	{"M.Tech", `m\.?\s?tech`},
	{"BSc", `b\.?\s?sc`},
	{"MSc", `m\.?\s?sc`},
	{"BE", `b\.?e\.?`},
	{"ME", `m\.?e\.?`},
	{"Bachelor", `bachelor`},
	{"Master", `master`},
	{"PhD", `ph\.?\s?d\.?`},
}

var degreeRe = buildDegreeRegexp()

func buildDegreeRegexp() *regexp.Regexp {
	parts := make([]string, len(degreeVocabulary))
	for i, d := range degreeVocabulary {
		parts[i] = "(" + d.pattern + ")"
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, "|"))
}

// FieldRule 单个字段的提取规则。规则之间相互独立，只写自己负责的字段。
type FieldRule struct {
	Name  string
	Apply func(text string, out *types.ParsedResume)
}

// ResumeParser 按顺序执行一组 FieldRule，从不返回错误
type ResumeParser struct {
	rules []FieldRule
	now   func() time.Time
}

// ResumeParserOption 配置 ResumeParser
type ResumeParserOption func(*ResumeParser)

// WithClock 注入时钟，Present/Current 按该时钟的年份计算
func WithClock(now func() time.Time) ResumeParserOption {
	return func(p *ResumeParser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRules 替换默认规则集
func WithRules(rules ...FieldRule) ResumeParserOption {
	return func(p *ResumeParser) {
		p.rules = rules
	}
}

// NewResumeParser 创建解析器，默认使用 DefaultRules
func NewResumeParser(opts ...ResumeParserOption) *ResumeParser {
	p := &ResumeParser{now: time.Now}
	p.rules = p.DefaultRules()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultRules 返回标准规则顺序: 姓名、邮箱、电话、LinkedIn、工作经历、技能、学历
func (p *ResumeParser) DefaultRules() []FieldRule {
	return []FieldRule{
		{Name: "name", Apply: func(text string, out *types.ParsedResume) {
			out.FirstName, out.LastName = ExtractName(text)
		}},
		{Name: "email", Apply: func(text string, out *types.ParsedResume) {
			out.Email = ExtractEmail(text)
		}},
		{Name: "phone", Apply: func(text string, out *types.ParsedResume) {
			out.Phone = ExtractPhone(text)
		}},
		{Name: "linkedin", Apply: func(text string, out *types.ParsedResume) {
			out.LinkedInURL = ExtractLinkedIn(text)
		}},
		{Name: "experience", Apply: func(text string, out *types.ParsedResume) {
			exp := ExtractExperience(text, p.now().Year())
			out.ExperienceYears = exp.Years
			out.CurrentCompany = exp.CurrentCompany
			out.CurrentRole = exp.CurrentRole
		}},
		{Name: "skills", Apply: func(text string, out *types.ParsedResume) {
			out.Skills = ExtractSkills(text)
		}},
		{Name: "education", Apply: func(text string, out *types.ParsedResume) {
			out.Education = ExtractEducation(text)
		}},
	}
}

// Parse 解析简历文本。任何规则失败时对应字段保持零值。
func (p *ResumeParser) Parse(text string) *types.ParsedResume {
	cleaned := cleanText(text)
	out := &types.ParsedResume{}
	for _, rule := range p.rules {
		rule.Apply(cleaned, out)
	}
	return out
}

// ParseResume 使用默认规则和系统时钟解析
func ParseResume(text string) *types.ParsedResume {
	return NewResumeParser().Parse(text)
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// isSectionHeading 判断一行是否为小节标题，例如 "Skills" 或 "EDUCATION:"
func isSectionHeading(line string) bool {
	l := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ":"))
	if l == "" {
		return false
	}
	if c := l[0]; c < 'A' || c > 'Z' {
		return false
	}
	// "Skills: Go, SQL" 这种标题和内容同一行的情况
	if idx := strings.IndexByte(l, ':'); idx > 0 {
		l = l[:idx]
	}
	return sectionHeadings[strings.ToLower(strings.Join(strings.Fields(l), " "))]
}

// ExtractName 在前几行中找只含字母、空格、点和连字符且不超过 4 个单词的一行。
// 第一个单词为名，后续最多两个单词为姓。
func ExtractName(text string) (first, last string) {
	lines := nonBlankLines(text)
	if len(lines) > nameScanLines {
		lines = lines[:nameScanLines]
	}
	for _, line := range lines {
		if isSectionHeading(line) {
			continue
		}
		if !nameLineRe.MatchString(line) || len(strings.Fields(line)) > nameMaxWords {
			continue
		}
		parts := nameTokenRe.FindAllString(line, -1)
		if len(parts) == 0 {
			continue
		}
		first = parts[0]
		if len(parts) >= 2 {
			end := len(parts)
			if end > 3 {
				end = 3
			}
			last = strings.Join(parts[1:end], " ")
		}
		return first, last
	}
	return "", ""
}

// ExtractEmail 第一个邮箱地址，统一小写
func ExtractEmail(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}

// ExtractPhone 第一个疑似电话号码，只保留最后 10 位数字，不足 10 位视为无效
func ExtractPhone(text string) string {
	m := phoneRe.FindString(text)
	if m == "" {
		return ""
	}
	digits := nonDigitRe.ReplaceAllString(m, "")
	if len(digits) < 10 {
		return ""
	}
	return digits[len(digits)-10:]
}

// ExtractLinkedIn 返回 https:// 开头的 LinkedIn 个人主页地址，域名部分统一小写
func ExtractLinkedIn(text string) string {
	m := linkedInRe.FindString(text)
	if m == "" {
		return ""
	}
	return "https://" + linkedInPrefix + m[len(linkedInPrefix):]
}

// Experience 工作经历小节的解析结果
type Experience struct {
	Years          float64
	CurrentCompany string
	CurrentRole    string
	Entries        []ExperienceEntry
}

// ExperienceEntry 一段工作经历
type ExperienceEntry struct {
	Company string
	Role    string
	Years   int
}

// ExtractExperience 定位工作经历小节，按空行切分为若干段，
// 每段取第一个年份区间，累加 max(0, end-start)。文档中的第一段提供当前公司和职位。
func ExtractExperience(text string, currentYear int) Experience {
	var exp Experience

	body, ok := sectionBody(text, experienceHeadingRe)
	if !ok {
		return exp
	}

	total := 0
	for _, entry := range entrySplitRe.Split(body, -1) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		e := ExperienceEntry{
			Company: firstGroup(companyRe, entry),
			Role:    firstGroup(roleRe, entry),
			Years:   entryYears(entry, currentYear),
		}
		total += e.Years
		exp.Entries = append(exp.Entries, e)
	}

	if len(exp.Entries) > 0 {
		exp.CurrentCompany = exp.Entries[0].Company
		exp.CurrentRole = exp.Entries[0].Role
	}
	exp.Years = math.Round(float64(total)*10) / 10
	return exp
}

func entryYears(entry string, currentYear int) int {
	m := yearRangeRe.FindStringSubmatch(entry)
	if m == nil {
		return 0
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	var end int
	switch strings.ToLower(m[2]) {
	case "present", "current":
		end = currentYear
	default:
		if end, err = strconv.Atoi(m[2]); err != nil {
			return 0
		}
	}
	if end < start {
		return 0
	}
	return end - start
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// sectionBody 找到匹配 heading 的行，返回其后直到下一个小节标题之间的文本。
// 标题行冒号后的内容作为正文第一行。
func sectionBody(text string, heading *regexp.Regexp) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		loc := heading.FindStringIndex(trimmed)
		if loc == nil {
			continue
		}

		var body []string
		if rest := strings.TrimSpace(trimmed[loc[1]:]); rest != "" {
			body = append(body, rest)
		}
		for _, next := range lines[i+1:] {
			if isSectionHeading(next) {
				break
			}
			body = append(body, next)
		}
		return strings.Join(body, "\n"), true
	}
	return "", false
}

// ExtractSkills 取 "Skills" 之后的一段文本，按逗号、项目符号、换行等拆分，
// 最多保留 20 项并以 ", " 连接。正文里顺带提到的 "skills" 拆不出内容时继续找下一处
func ExtractSkills(text string) string {
	for _, loc := range skillsRe.FindAllStringIndex(text, -1) {
		if skills := skillsAfter(text[loc[1]:]); len(skills) > 0 {
			return strings.Join(skills, ", ")
		}
	}
	return ""
}

func skillsAfter(rest string) []string {
	lines := strings.Split(rest, "\n")
	span := []string{lines[0]}
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			// 标题独占一行时，紧随其后的空行不算结束
			if i == 0 && strings.TrimSpace(lines[0]) == "" {
				continue
			}
			break
		}
		if isSectionHeading(line) || len(span) >= maxSkillLines {
			break
		}
		span = append(span, line)
	}

	raw := strings.Join(span, "\n")
	if idx := strings.IndexByte(raw, '}'); idx >= 0 {
		raw = raw[:idx]
	}
	if loc := sentenceEnd.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}

	var skills []string
	for _, s := range skillSplitRe.Split(raw, -1) {
		s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-*"))
		if s == "" {
			continue
		}
		skills = append(skills, s)
		if len(skills) == maxSkills {
			break
		}
	}
	return skills
}

// ExtractEducation 在学历小节中找第一个学位词，返回规范写法
func ExtractEducation(text string) string {
	body, ok := sectionBody(text, educationHeadingRe)
	if !ok {
		return ""
	}

	for _, m := range degreeRe.FindAllStringSubmatchIndex(body, -1) {
		// 学位词前后都不能紧挨字母，避免 "Bengaluru" 或 "home" 之类误判
		if m[0] > 0 && isASCIILetter(body[m[0]-1]) {
			continue
		}
		if m[1] < len(body) && isASCIILetter(body[m[1]]) {
			continue
		}
		for g := range degreeVocabulary {
			if m[2+2*g] >= 0 {
				return degreeVocabulary[g].canonical
			}
		}
	}
	return ""
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
