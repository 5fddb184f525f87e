package panel

import "time"

// Panel is catalog metadata: a named category and the tests it usually holds.
// Records never reference panels directly.
type Panel struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Tests       []Definition `json:"tests"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Definition struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

func strptr(s string) *string { return &s }

// Defaults is the catalog seeded on a fresh database.
func Defaults() []Panel {
	return []Panel{
		{
			Name:        "CBC",
			Description: strptr("Complete Blood Count"),
			Tests: []Definition{
				{Name: "HB", Unit: "g/dL"},
				{Name: "WBC", Unit: "10^3/uL"},
				{Name: "RBC", Unit: "10^6/uL"},
				{Name: "Platelets", Unit: "10^3/uL"},
				{Name: "Hematocrit", Unit: "%"},
			},
		},
		{
			Name:        "Lipid Panel",
			Description: strptr("Cholesterol and triglycerides"),
			Tests: []Definition{
				{Name: "Total Cholesterol", Unit: "mg/dL"},
				{Name: "LDL", Unit: "mg/dL"},
				{Name: "HDL", Unit: "mg/dL"},
				{Name: "Triglycerides", Unit: "mg/dL"},
			},
		},
		{
			Name:        "Metabolic Panel",
			Description: strptr("Basic metabolic panel"),
			Tests: []Definition{
				{Name: "Glucose", Unit: "mg/dL"},
				{Name: "Sodium", Unit: "mmol/L"},
				{Name: "Potassium", Unit: "mmol/L"},
				{Name: "Creatinine", Unit: "mg/dL"},
				{Name: "BUN", Unit: "mg/dL"},
			},
		},
		{
			Name:        "Thyroid Panel",
			Description: strptr("Thyroid function"),
			Tests: []Definition{
				{Name: "TSH", Unit: "mIU/L"},
				{Name: "Free T4", Unit: "ng/dL"},
				{Name: "Free T3", Unit: "pg/mL"},
			},
		},
	}
}
