package entrance

import (
	"net/url"
)

// Step keys
const (
	StepSeminar   = "seminar"
	StepWelcome   = "welcome"
	StepConsult   = "consult"
	StepForms     = "forms"
	StepPlacement = "placement"
	StepNewcomer  = "newcomer"
	StepReserve   = "reserve"
	StepExam      = "exam"
	StepResult    = "result"
	StepEnroll    = "enroll"
)

// Step is one stage of an admission procedure.
type Step struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CTAKey      string `json:"cta_key,omitempty"` // empty when the step has no call-to-action
}

// Link is a call-to-action rendered on the active step.
type Link struct {
	Label   string `json:"label"`
	Href    string `json:"href"`
	Primary bool   `json:"primary"`
}

var (
	kinderRegularSteps = []Step{
		{Key: StepSeminar, Title: "01. 설명회", Description: "학부모 대상 설명회 참석으로 교육 철학·프로그램을 이해합니다."},
		{Key: StepForms, Title: "02. 입학원서 작성", Description: "온라인 입학원서를 제출합니다."},
		{Key: StepNewcomer, Title: "03. 신입생 안내 및 동의서", Description: "신입생 안내(교재 주문·셔틀 등)와 필수 동의 절차를 완료합니다."},
	}

	kinderTransferSteps = []Step{
		{Key: StepWelcome, Title: "01. 안내 확인", Description: "프로그램·시간표·수업 안내를 확인합니다."},
		{Key: StepConsult, Title: "02. 상담 및 테스트 신청", Description: "상담 예약 후 필요 시 간단한 테스트를 진행합니다."},
		{Key: StepForms, Title: "03. 원서 제출", Description: "학생 등록 카드·기초 실태·우유·방과후 신청서를 작성합니다."},
		{Key: StepPlacement, Title: "04. 반 배정 상담", Description: "연령/학년/요일을 고려해 배정 상담을 진행합니다."},
		{Key: StepEnroll, Title: "05. 수강료 납입 · 신입생 안내", Description: "첫 달 수강료 납입 후 신입생 안내(교재·셔틀 등, 이후 동의서/안내 발송)."},
	}

	examTrackSteps = []Step{
		{Key: StepWelcome, Title: "01. 안내 확인", Description: "프로그램·시간표·수업 안내를 확인합니다."},
		{Key: StepReserve, Title: "02. 입학시험 예약", Description: "홈페이지 로그인 후 안내된 응시 가능 일정 중 선택·예약합니다."},
		{Key: StepExam, Title: "03. 입학시험 응시", Description: "모든 응시는 오프라인으로 진행됩니다."},
		{Key: StepResult, Title: "04. 입학 결과 상담", Description: "시험 결과 기반 단계·프로그램 상담, 요일/학년 고려 반 선택."},
		{Key: StepEnroll, Title: "05. 수강료 납입 · 신입생 안내", Description: "첫 달 수강료 납입 후 신입생 안내(교재·셔틀, 이후 동의서/안내 발송)."},
	}

	// ctaLabels holds every step key that has a call-to-action.
	ctaLabels = map[string]struct {
		label   string
		primary bool
	}{
		StepSeminar:   {"설명회 신청", true},
		StepConsult:   {"상담 예약", true},
		StepForms:     {"원서 작성", false},
		StepPlacement: {"배정 상담 예약", false},
		StepReserve:   {"입학시험 예약", true},
		StepExam:      {"시험 안내 보기", false},
		StepResult:    {"결과 상담 예약", false},
		StepEnroll:    {"신입생 안내", false},
	}
)

// MakeSteps returns a fresh copy of the step sequence for a branch and flow.
// The flow only matters for kinder; any flow other than regular is a transfer.
// Unknown branches get an empty sequence.
func MakeSteps(branch BranchType, flow FlowType) []Step {
	var src []Step
	switch {
	case branch == BranchKinder && flow == FlowRegular:
		src = kinderRegularSteps
	case branch == BranchKinder:
		src = kinderTransferSteps
	case branch.IsExamTrack():
		src = examTrackSteps
	default:
		return []Step{}
	}

	steps := make([]Step, len(src))
	for i, s := range src {
		if _, ok := ctaLabels[s.Key]; ok {
			s.CTAKey = s.Key
		}
		steps[i] = s
	}
	return steps
}

// CourseLabel is the display name of a branch/flow combination.
func CourseLabel(branch BranchType, flow FlowType) string {
	switch branch {
	case BranchKinder:
		if flow == FlowRegular {
			return "프라게 킨더 · 정규입학"
		}
		return "프라게 킨더 · 편입"
	case BranchJunior:
		return "프라게 주니어"
	case BranchMiddle:
		return "프라디스 중등"
	}
	return ""
}

// StepCTA returns the call-to-action for a step key. The mapping does not
// depend on the sequence the step belongs to.
func StepCTA(key string, branch BranchType, token string) (Link, bool) {
	cta, ok := ctaLabels[key]
	if !ok {
		return Link{}, false
	}

	b := url.QueryEscape(string(branch))
	var href string
	switch key {
	case StepSeminar:
		href = "/kinder/seminar"
	case StepConsult:
		href = "/consult?brchType=kinder"
	case StepForms:
		href = "/form?id=" + url.QueryEscape(token)
	case StepPlacement:
		href = "/consult/placement?brchType=kinder"
	case StepReserve:
		href = "/exam/reserve?brchType=" + b
	case StepExam:
		href = "/exam/guide?brchType=" + b
	case StepResult:
		href = "/consult/result?brchType=" + b
	case StepEnroll:
		href = "/newcomer?brchType=" + b
	}
	return Link{Label: cta.label, Href: href, Primary: cta.primary}, true
}
