// Package hrschema defines the HR attrition dataset: the canonical column
// layout of the cleaned table, per-column constraints, and the derived
// bucket columns. The cleaner and the default expectation suite are both
// driven by this registry so they cannot drift apart.
package hrschema

import (
	"github.com/driftline-labs/hrflow/internal/table"
)

// Identifier is the unique employee identifier column.
const Identifier = "employee_number"

// ReferenceRowCount is the row count of the reference snapshot.
const ReferenceRowCount = 1470

// ColumnSpec declares the constraints of one cleaned column.
type ColumnSpec struct {
	Name          string
	Type          table.Type
	Required      bool
	Unique        bool
	AllowedValues []string
	Min           *float64
	Max           *float64
	// Derived columns are produced by the cleaner, not present in the raw input.
	Derived bool
}

// DroppedColumns are raw columns removed by the cleaner. All three are
// constant across the whole snapshot and carry no analytic value.
var DroppedColumns = []string{"employee_count", "over_18", "standard_hours"}

// Departments, travel frequencies and the other enumerations below follow
// the reference snapshot's fixed categorical domains.
var (
	AttritionValues  = []string{"Yes", "No"}
	DepartmentValues = []string{"Sales", "Research & Development", "Human Resources"}
	TravelValues     = []string{"Non-Travel", "Travel_Rarely", "Travel_Frequently"}
	EducationFields  = []string{"Life Sciences", "Medical", "Marketing", "Technical Degree", "Human Resources", "Other"}
	GenderValues     = []string{"Female", "Male"}
	JobRoleValues    = []string{
		"Sales Executive", "Research Scientist", "Laboratory Technician",
		"Manufacturing Director", "Healthcare Representative", "Manager",
		"Sales Representative", "Research Director", "Human Resources",
	}
	MaritalStatusValues = []string{"Single", "Married", "Divorced"}
	OverTimeValues      = []string{"Yes", "No"}
)

// Columns returns the cleaned table layout in output order: the surviving
// raw columns in their canonical order followed by the derived buckets.
func Columns() []ColumnSpec {
	return []ColumnSpec{
		{Name: "age", Type: table.TypeInt, Required: true, Min: f(18), Max: f(65)},
		{Name: "attrition", Type: table.TypeString, Required: true, AllowedValues: AttritionValues},
		{Name: "business_travel", Type: table.TypeString, Required: true, AllowedValues: TravelValues},
		{Name: "daily_rate", Type: table.TypeInt, Required: true, Min: f(0), Max: f(2000)},
		{Name: "department", Type: table.TypeString, Required: true, AllowedValues: DepartmentValues},
		{Name: "distance_from_home", Type: table.TypeInt, Required: true, Min: f(0), Max: f(100)},
		{Name: "education", Type: table.TypeInt, Required: true, Min: f(1), Max: f(5)},
		{Name: "education_field", Type: table.TypeString, Required: true, AllowedValues: EducationFields},
		{Name: Identifier, Type: table.TypeInt, Required: true, Unique: true, Min: f(1), Max: f(1 << 31)},
		{Name: "environment_satisfaction", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "gender", Type: table.TypeString, Required: true, AllowedValues: GenderValues},
		{Name: "hourly_rate", Type: table.TypeInt, Required: true, Min: f(0), Max: f(200)},
		{Name: "job_involvement", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "job_level", Type: table.TypeInt, Required: true, Min: f(1), Max: f(5)},
		{Name: "job_role", Type: table.TypeString, Required: true, AllowedValues: JobRoleValues},
		{Name: "job_satisfaction", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "marital_status", Type: table.TypeString, Required: true, AllowedValues: MaritalStatusValues},
		{Name: "monthly_income", Type: table.TypeInt, Required: true, Min: f(1000), Max: f(20000)},
		{Name: "monthly_rate", Type: table.TypeInt, Required: true, Min: f(0), Max: f(30000)},
		{Name: "num_companies_worked", Type: table.TypeInt, Required: true, Min: f(0), Max: f(20)},
		{Name: "over_time", Type: table.TypeString, Required: true, AllowedValues: OverTimeValues},
		{Name: "percent_salary_hike", Type: table.TypeInt, Required: true, Min: f(0), Max: f(100)},
		{Name: "performance_rating", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "relationship_satisfaction", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "stock_option_level", Type: table.TypeInt, Required: true, Min: f(0), Max: f(3)},
		{Name: "total_working_years", Type: table.TypeInt, Required: true, Min: f(0), Max: f(50)},
		{Name: "training_times_last_year", Type: table.TypeInt, Required: true, Min: f(0), Max: f(10)},
		{Name: "work_life_balance", Type: table.TypeInt, Required: true, Min: f(1), Max: f(4)},
		{Name: "years_at_company", Type: table.TypeInt, Required: true, Min: f(0), Max: f(40)},
		{Name: "years_in_current_role", Type: table.TypeInt, Required: true, Min: f(0), Max: f(40)},
		{Name: "years_since_last_promotion", Type: table.TypeInt, Required: true, Min: f(0), Max: f(40)},
		{Name: "years_with_curr_manager", Type: table.TypeInt, Required: true, Min: f(0), Max: f(40)},
		{Name: "tenure_band", Type: table.TypeString, Required: true, AllowedValues: TenureBands, Derived: true},
		{Name: "income_band", Type: table.TypeString, Required: true, AllowedValues: IncomeBands, Derived: true},
		{Name: "age_group", Type: table.TypeString, Required: true, AllowedValues: AgeGroups, Derived: true},
	}
}

// ColumnByName returns the spec for a cleaned column.
func ColumnByName(name string) (ColumnSpec, bool) {
	for _, c := range Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// TableColumns returns the cleaned layout as table column definitions.
func TableColumns() []table.Column {
	specs := Columns()
	cols := make([]table.Column, len(specs))
	for i, s := range specs {
		cols[i] = table.Column{Name: s.Name, Type: s.Type}
	}
	return cols
}

func f(v float64) *float64 {
	return &v
}
