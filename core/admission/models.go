package admission

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/amork0112-rgb/frageedu/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Category is one of the four admission tasks a household completes.
type Category string

const (
	CategoryConsent   Category = "consent"
	CategoryForms     Category = "forms"
	CategoryGuides    Category = "guides"
	CategoryChecklist Category = "checklist"
)

var Categories = []Category{CategoryConsent, CategoryForms, CategoryGuides, CategoryChecklist}

// Data is the free-form payload saved for a category.
type Data map[string]interface{}

type Admission struct {
	HouseholdToken  string    `json:"household_token"`
	ConsentStatus   Status    `json:"consent_status"`
	FormsStatus     Status    `json:"forms_status"`
	GuidesStatus    Status    `json:"guides_status"`
	ChecklistStatus Status    `json:"checklist_status"`
	ConsentData     Data      `json:"consent_data"`
	FormsData       Data      `json:"forms_data"`
	GuidesData      Data      `json:"guides_data"`
	ChecklistData   Data      `json:"checklist_data"`
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// New returns the record of a household that has not done anything yet.
func New(householdToken string) Admission {
	return Admission{
		HouseholdToken:  householdToken,
		ConsentStatus:   StatusPending,
		FormsStatus:     StatusPending,
		GuidesStatus:    StatusPending,
		ChecklistStatus: StatusPending,
		ConsentData:     Data{},
		FormsData:       Data{},
		GuidesData:      Data{},
		ChecklistData:   Data{},
		UpdatedAt:       time.Now().UTC(),
	}
}

func (adm Admission) StatusOf(cat Category) Status {
	switch cat {
	case CategoryConsent:
		return adm.ConsentStatus
	case CategoryForms:
		return adm.FormsStatus
	case CategoryGuides:
		return adm.GuidesStatus
	case CategoryChecklist:
		return adm.ChecklistStatus
	}
	return ""
}

type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// Progress counts completed categories; Percent is rounded down.
func (adm Admission) Progress() Progress {
	p := Progress{Total: len(Categories)}
	for _, cat := range Categories {
		if adm.StatusOf(cat) == StatusCompleted {
			p.Completed++
		}
	}
	p.Percent = p.Completed * 100 / p.Total
	return p
}

type ConsentUpdate struct {
	RegulationAgreed *bool      `json:"regulation_agreed" validate:"required"`
	PrivacyAgreed    *bool      `json:"privacy_agreed" validate:"required"`
	PhotoConsent     *bool      `json:"photo_consent" validate:"required"`
	MedicalConsent   *bool      `json:"medical_consent" validate:"required"`
	ParentSignature  *string    `json:"parent_signature"`
	StudentName      *string    `json:"student_name"`
	SignedAt         *time.Time `json:"signed_at"`
}

func (cu *ConsentUpdate) Validate(validate *validator.Validate) error {
	if cu.ParentSignature != nil {
		s := core.CleanString(*cu.ParentSignature)
		cu.ParentSignature = &s
	}
	if cu.StudentName != nil {
		s := core.CleanString(*cu.StudentName)
		cu.StudentName = &s
	}
	return validate.Struct(cu)
}

type FormsUpdate struct {
	StudentName        string `json:"student_name" validate:"required"`
	BirthDate          string `json:"birth_date" validate:"required"`
	ParentName         string `json:"parent_name" validate:"required"`
	EmergencyContact   string `json:"emergency_contact" validate:"required"`
	Allergies          string `json:"allergies"`
	MilkProgram        *bool  `json:"milk_program" validate:"required"`
	AfterschoolProgram string `json:"afterschool_program"`
}

func (fu *FormsUpdate) Validate(validate *validator.Validate) error {
	fu.StudentName = core.CleanString(fu.StudentName)
	fu.BirthDate = core.CleanString(fu.BirthDate)
	fu.ParentName = core.CleanString(fu.ParentName)
	fu.EmergencyContact = core.CleanString(fu.EmergencyContact)
	fu.Allergies = core.CleanString(fu.Allergies)
	fu.AfterschoolProgram = core.CleanString(fu.AfterschoolProgram)
	return validate.Struct(fu)
}

type ChecklistUpdate struct {
	Items []map[string]interface{} `json:"items" validate:"required"`
}

func (cu *ChecklistUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(cu)
}

// toData stores a payload under its JSON field names.
func toData(v interface{}) (Data, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	data := make(Data)
	if err = json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}
