package parser

import (
	"testing"
	"time"

	"hiring-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Jane Doe
Jane.DOE@Example.com | +1 (555) 123-4567
www.linkedin.com/in/jane-doe_01

Professional Experience
Senior Engineer at Acme Corp
2019 - Present

Developer at Globex
2015 to 2018

Skills: Go, Python • Docker, Node.js
Kubernetes

Education
B.Tech in Computer Science, Bengaluru, 2015
`

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestParseResume_FullDocument(t *testing.T) {
	p := NewResumeParser(WithClock(fixedClock))
	got := p.Parse(sampleResume)

	require.NotNil(t, got)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "jane.doe@example.com", got.Email)
	assert.Equal(t, "5551234567", got.Phone)
	assert.Equal(t, "https://linkedin.com/in/jane-doe_01", got.LinkedInURL)
	// (2024-2019) + (2018-2015)
	assert.Equal(t, 8.0, got.ExperienceYears)
	assert.Equal(t, "Acme Corp", got.CurrentCompany)
	assert.Equal(t, "Senior Engineer", got.CurrentRole)
	assert.Equal(t, "Go, Python, Docker, Node.js, Kubernetes", got.Skills)
	assert.Equal(t, "B.Tech", got.Education)
}

func TestParseResume_EmptyTextYieldsZeroValues(t *testing.T) {
	assert.Equal(t, &types.ParsedResume{}, ParseResume(""))
	assert.Equal(t, &types.ParsedResume{}, ParseResume("\x00\x00  \n\n"))
}

func TestExtractExperience_SingleEntry(t *testing.T) {
	exp := ExtractExperience(cleanText("Experience\nEngineer at Acme\n2018 - 2021\n\n"), 2024)
	assert.Equal(t, 3.0, exp.Years)
	assert.Equal(t, "Acme", exp.CurrentCompany)
	assert.Equal(t, "Engineer", exp.CurrentRole)
}

func TestExtractExperience_Cases(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		years float64
	}{
		{"无经历小节", "Jane Doe\nSkills: Go", 0},
		{"倒序年份记为 0", "Experience\nEngineer at Acme\n2021 - 2018", 0},
		{"Current 取当前年份", "Work History\nAnalyst at Initech\n2020 – Current", 4},
		{"只取每段第一个区间", "Experience\nLead at A\n2010-2012 and 2013-2020", 2},
		{"下一个小节结束", "Experience\nDev at A\n2016 - 2018\nEducation\nBSc 2012 - 2016", 2},
		{"段内无年份", "Experience\nIntern at Somewhere", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.years, ExtractExperience(tt.text, 2024).Years)
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		first, last string
	}{
		{"两个单词", "John Smith\njohn@x.io", "John", "Smith"},
		{"四个单词截取前三", "John Ronald Reuel Tolkien\n", "John", "Ronald Reuel"},
		{"单个单词", "Madonna\nSinger", "Madonna", ""},
		{"超过四个单词跳过", "This Is Not A Name Line\nMary Jane", "Mary", "Jane"},
		{"含数字的行跳过", "Resume 2024\nAlex Kim", "Alex", "Kim"},
		{"小节标题不是姓名", "Experience\n2019 - 2020", "", ""},
		{"只看前五行", "1\n2\n3\n4\n5\nLate Name", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := ExtractName(tt.text)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestExtractEmailLowercased(t *testing.T) {
	assert.Equal(t, "a.b+c@mail.example.org", ExtractEmail("contact: A.B+C@Mail.Example.ORG"))
	assert.Empty(t, ExtractEmail("no address here"))
}

func TestExtractPhone(t *testing.T) {
	assert.Equal(t, "9876543210", ExtractPhone("+91-987-654-3210"))
	assert.Equal(t, "5551234567", ExtractPhone("(555) 123 4567"))
	assert.Empty(t, ExtractPhone("call 12345"))
}

func TestExtractLinkedIn(t *testing.T) {
	assert.Equal(t, "https://linkedin.com/in/abc-123", ExtractLinkedIn("see LinkedIn.com/in/abc-123 for more"))
	assert.Empty(t, ExtractLinkedIn("github.com/abc"))
}

func TestExtractSkills(t *testing.T) {
	t.Run("标题独占一行", func(t *testing.T) {
		assert.Equal(t, "Go, SQL, Redis", ExtractSkills("Skills\nGo, SQL\nRedis\n\nProjects\nfoo"))
	})
	t.Run("句号截断", func(t *testing.T) {
		assert.Equal(t, "Java, Spring", ExtractSkills("Key skills: Java, Spring. Also likes tea"))
	})
	t.Run("最多 20 项", func(t *testing.T) {
		text := "Skills: a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p,q,r,s,t,u,v,w"
		assert.Equal(t, "a, b, c, d, e, f, g, h, i, j, k, l, m, n, o, p, q, r, s, t", ExtractSkills(text))
	})
	t.Run("没有技能小节", func(t *testing.T) {
		assert.Empty(t, ExtractSkills("Jane Doe\nExperience"))
	})
	t.Run("跳过正文里提到的 skills", func(t *testing.T) {
		text := "Jane Doe\njane@example.com\nSummary\nExcellent communication skills.\n\nSkills\nGo, Python, SQL\n"
		assert.Equal(t, "Go, Python, SQL", ExtractSkills(text))
	})
	t.Run("空的软技能标题", func(t *testing.T) {
		assert.Equal(t, "Go, Python", ExtractSkills("Soft skills\n\nSkills: Go, Python"))
	})
}

func TestExtractEducation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"带点写法", "Education\nB.E. Mechanical, 2014", "BE"},
		{"硕士", "Academic Background\nMaster of Science", "Master"},
		{"忽略单词内部", "Education\nBengaluru Institute\nMSc Physics", "MSc"},
		{"博士", "Qualifications\nPh.D in Chemistry", "PhD"},
		{"没有学历小节", "Skills: BSc level maths", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractEducation(tt.text))
		})
	}
}

func TestWithRulesOverridesPipeline(t *testing.T) {
	p := NewResumeParser(WithRules(FieldRule{
		Name: "email-only",
		Apply: func(text string, out *types.ParsedResume) {
			out.Email = ExtractEmail(text)
		},
	}))
	got := p.Parse(sampleResume)
	assert.Equal(t, "jane.doe@example.com", got.Email)
	assert.Empty(t, got.FirstName)
	assert.Zero(t, got.ExperienceYears)
}
