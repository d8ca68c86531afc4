package domain

import "time"

// AllowAll disables an allow-list criterion regardless of its other entries.
const AllowAll = "All"

// Scheme is a government welfare scheme and its eligibility criteria.
// A nil bound or an empty allow-list places no restriction on that axis.
type Scheme struct {
	SchemeID         string   `json:"id" dynamodbav:"scheme_id"`
	Name             string   `json:"name" dynamodbav:"name"`
	Description      string   `json:"description" dynamodbav:"description"`
	ShortDescription string   `json:"short_description" dynamodbav:"short_description"`
	Department       string   `json:"department" dynamodbav:"department"`
	Ministry         string   `json:"ministry,omitempty" dynamodbav:"ministry,omitempty"`
	OfficialWebsite  string   `json:"official_website,omitempty" dynamodbav:"official_website,omitempty"`
	Category         string   `json:"category" dynamodbav:"category"`
	Benefits         []string `json:"benefits" dynamodbav:"benefits"`

	MinAge              *int     `json:"min_age" dynamodbav:"min_age,omitempty"`
	MaxAge              *int     `json:"max_age" dynamodbav:"max_age,omitempty"`
	EligibleStates      []string `json:"eligible_states" dynamodbav:"eligible_states"`
	EligibleGenders     []string `json:"eligible_genders" dynamodbav:"eligible_genders"`
	MaxIncome           *float64 `json:"max_income" dynamodbav:"max_income,omitempty"`
	EligibleCategories  []string `json:"eligible_categories" dynamodbav:"eligible_categories"`
	EligibleOccupations []string `json:"eligible_occupations" dynamodbav:"eligible_occupations"`

	ApplicationProcess  string   `json:"application_process" dynamodbav:"application_process"`
	RequiredDocuments   []string `json:"required_documents" dynamodbav:"required_documents"`
	ApplicationDeadline string   `json:"application_deadline,omitempty" dynamodbav:"application_deadline,omitempty"` // YYYY-MM-DD
	ImageURL            string   `json:"image_url,omitempty" dynamodbav:"image_url,omitempty"`
	PDFURL              string   `json:"pdf_url,omitempty" dynamodbav:"pdf_url,omitempty"`

	Active    bool      `json:"active" dynamodbav:"active"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// SchemeInput is the admin payload for create and full-replacement update.
// Identity and timestamps are never taken from the caller.
type SchemeInput struct {
	Name             string   `json:"name" validate:"required"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Department       string   `json:"department"`
	Ministry         string   `json:"ministry"`
	OfficialWebsite  string   `json:"official_website" validate:"omitempty,url"`
	Category         string   `json:"category" validate:"required"`
	Benefits         []string `json:"benefits"`

	MinAge              *int     `json:"min_age" validate:"omitempty,gte=0"`
	MaxAge              *int     `json:"max_age" validate:"omitempty,gte=0"`
	EligibleStates      []string `json:"eligible_states"`
	EligibleGenders     []string `json:"eligible_genders"`
	MaxIncome           *float64 `json:"max_income" validate:"omitempty,gte=0"`
	EligibleCategories  []string `json:"eligible_categories"`
	EligibleOccupations []string `json:"eligible_occupations"`

	ApplicationProcess  string   `json:"application_process"`
	RequiredDocuments   []string `json:"required_documents"`
	ApplicationDeadline string   `json:"application_deadline" validate:"omitempty,datetime=2006-01-02"`
	ImageURL            string   `json:"image_url"`
	PDFURL              string   `json:"pdf_url"`

	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

// Scheme builds a record from the input. SchemeID and timestamps are left to the caller.
func (in SchemeInput) Scheme() Scheme {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return Scheme{
		Name:                in.Name,
		Description:         in.Description,
		ShortDescription:    in.ShortDescription,
		Department:          in.Department,
		Ministry:            in.Ministry,
		OfficialWebsite:     in.OfficialWebsite,
		Category:            in.Category,
		Benefits:            in.Benefits,
		MinAge:              in.MinAge,
		MaxAge:              in.MaxAge,
		EligibleStates:      in.EligibleStates,
		EligibleGenders:     in.EligibleGenders,
		MaxIncome:           in.MaxIncome,
		EligibleCategories:  in.EligibleCategories,
		EligibleOccupations: in.EligibleOccupations,
		ApplicationProcess:  in.ApplicationProcess,
		RequiredDocuments:   in.RequiredDocuments,
		ApplicationDeadline: in.ApplicationDeadline,
		ImageURL:            in.ImageURL,
		PDFURL:              in.PDFURL,
		Active:              active,
	}
}

// Document kinds accepted by the scheme upload endpoint.
const (
	DocumentPDF   = "pdf"
	DocumentImage = "image"
)
