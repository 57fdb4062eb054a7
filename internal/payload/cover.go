package payload

import (
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/joelkehle/feasibility-study/internal/sections"
)

type Author struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type BasicInfo struct {
	Sector               string `json:"sector,omitempty"`
	ProjectType          string `json:"projectType,omitempty"`
	SpecifiedProjectType string `json:"specifiedProjectType,omitempty"`
	Country              string `json:"country,omitempty"`
	City                 string `json:"city,omitempty"`
	Area                 string `json:"area,omitempty"`
	FundingMethod        string `json:"fundingMethod,omitempty"`
	PersonalContribution string `json:"personalContribution,omitempty"`
	LoanAmount           string `json:"loanAmount,omitempty"`
	InterestValue        string `json:"interestValue,omitempty"`
	Currency             string `json:"currency,omitempty"`
	TotalCapital         string `json:"totalCapital,omitempty"`
	LoanMonths           string `json:"loanMonths,omitempty"`
	TargetAudience       string `json:"targetAudience,omitempty"`
	ProjectStatus        string `json:"projectStatus,omitempty"`
	Duration             string `json:"duration,omitempty"`
	DurationUnit         string `json:"durationUnit,omitempty"`
}

type Timestamp struct {
	ISO       string `json:"iso"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Formatted string `json:"formatted"`
	IssueDate string `json:"issueDate"`
}

// NewTimestamp renders t in every form the report uses.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{
		ISO:       t.UTC().Format(time.RFC3339),
		Date:      t.Format("2006-01-02"),
		Time:      t.Format("15:04:05"),
		Formatted: t.Format("2 January 2006, 15:04"),
		IssueDate: t.Format("January 2, 2006"),
	}
}

type CoverPage struct {
	StudyType          string    `json:"studyType,omitempty"`
	ProjectName        string    `json:"projectName,omitempty"`
	ProjectDescription string    `json:"projectDescription,omitempty"`
	VisionMission      string    `json:"visionMission,omitempty"`
	BasicInfo          BasicInfo `json:"basicInfo"`
	Author             Author    `json:"author"`
	Timestamp          Timestamp `json:"timestamp"`
	Confidentiality    string    `json:"confidentiality"`
}

var studyTypes = map[string]string{
	"preliminary":   "Preliminary Feasibility Study",
	"brief":         "Brief Feasibility Study",
	"comprehensive": "Comprehensive Feasibility Study",
}

// HumanizeStudyType expands a study-type code. Unknown values pass through.
func HumanizeStudyType(v string) string {
	if s, ok := studyTypes[strings.ToLower(strings.TrimSpace(v))]; ok {
		return s
	}
	return v
}

var confidentiality = map[string]string{
	"en": "Confidential: This document is intended solely for the project owner and relevant stakeholders. Do not copy or distribute without prior permission.",
	"ar": "سري: هذا المستند مخصص فقط لمالك المشروع والجهات ذات الصلة. يُحظر النسخ أو المشاركة دون إذن مسبق.",
}

// ConfidentialityNote returns the localized notice; English is the fallback.
func ConfidentialityNote(lang string) string {
	if s, ok := confidentiality[BaseLanguage(lang)]; ok {
		return s
	}
	return confidentiality["en"]
}

// BaseLanguage reduces a BCP 47 tag to its base language ("ar-MA" -> "ar").
// An unparseable tag yields "en".
func BaseLanguage(lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

var rtlLanguages = map[string]bool{"ar": true, "he": true, "fa": true, "ur": true}

// IsRTL reports whether lang is written right to left.
func IsRTL(lang string) bool {
	return rtlLanguages[BaseLanguage(lang)]
}

// BuildCoverPage fills the cover page from canonical answers. The author
// falls back to the userInfo answers when not given.
func BuildCoverPage(answers map[string]any, author Author, lang string, now time.Time) CoverPage {
	get := func(keys ...string) string {
		for _, k := range keys {
			if s := sections.ToStringOrNil(answers[k]); s != nil {
				return *s
			}
		}
		return ""
	}
	if author.FullName == "" {
		author.FullName = get("userName", "fullName")
	}
	if author.Email == "" {
		author.Email = get("userEmail", "email")
	}
	return CoverPage{
		StudyType:          HumanizeStudyType(get("studyType")),
		ProjectName:        get("projectName"),
		ProjectDescription: get("projectDescription"),
		VisionMission:      get("visionMission", "notes"),
		BasicInfo: BasicInfo{
			Sector:               get("projectSector"),
			ProjectType:          get("projectType", "specifiedProjectType"),
			SpecifiedProjectType: get("specifiedProjectType"),
			Country:              get("country", "userCountry"),
			City:                 get("city", "userCity"),
			Area:                 get("area"),
			FundingMethod:        get("fundingMethod"),
			PersonalContribution: get("personalContribution"),
			LoanAmount:           get("loanAmount"),
			InterestValue:        get("interestValue"),
			Currency:             get("currency"),
			TotalCapital:         get("totalCapital"),
			LoanMonths:           get("loanMonths"),
			TargetAudience:       get("targetAudience"),
			ProjectStatus:        get("projectStatus"),
			Duration:             get("duration"),
			DurationUnit:         get("durationUnit"),
		},
		Author:          author,
		Timestamp:       NewTimestamp(now),
		Confidentiality: ConfidentialityNote(lang),
	}
}
