package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// RawHeader is the raw snapshot header in its original source casing,
// including the constant columns the cleaner drops.
var RawHeader = []string{
	"Age", "Attrition", "BusinessTravel", "DailyRate", "Department",
	"DistanceFromHome", "Education", "EducationField", "EmployeeCount",
	"EmployeeNumber", "EnvironmentSatisfaction", "Gender", "HourlyRate",
	"JobInvolvement", "JobLevel", "JobRole", "JobSatisfaction",
	"MaritalStatus", "MonthlyIncome", "MonthlyRate", "NumCompaniesWorked",
	"Over18", "OverTime", "PercentSalaryHike", "PerformanceRating",
	"RelationshipSatisfaction", "StandardHours", "StockOptionLevel",
	"TotalWorkingYears", "TrainingTimesLastYear", "WorkLifeBalance",
	"YearsAtCompany", "YearsInCurrentRole", "YearsSinceLastPromotion",
	"YearsWithCurrManager",
}

// RawRow returns one valid raw record with the given employee number.
// Overrides replace individual fields by raw header name.
func RawRow(employeeNumber int, overrides map[string]string) []string {
	defaults := map[string]string{
		"Age":                      "34",
		"Attrition":                "No",
		"BusinessTravel":           "Travel_Rarely",
		"DailyRate":                "1102",
		"Department":               "Sales",
		"DistanceFromHome":         "8",
		"Education":                "3",
		"EducationField":           "Life Sciences",
		"EmployeeCount":            "1",
		"EmployeeNumber":           strconv.Itoa(employeeNumber),
		"EnvironmentSatisfaction":  "2",
		"Gender":                   "Female",
		"HourlyRate":               "94",
		"JobInvolvement":           "3",
		"JobLevel":                 "2",
		"JobRole":                  "Sales Executive",
		"JobSatisfaction":          "4",
		"MaritalStatus":            "Single",
		"MonthlyIncome":            "5993",
		"MonthlyRate":              "19479",
		"NumCompaniesWorked":       "8",
		"Over18":                   "Y",
		"OverTime":                 "Yes",
		"PercentSalaryHike":        "11",
		"PerformanceRating":        "3",
		"RelationshipSatisfaction": "1",
		"StandardHours":            "80",
		"StockOptionLevel":         "0",
		"TotalWorkingYears":        "8",
		"TrainingTimesLastYear":    "0",
		"WorkLifeBalance":          "1",
		"YearsAtCompany":           "6",
		"YearsInCurrentRole":       "4",
		"YearsSinceLastPromotion":  "0",
		"YearsWithCurrManager":     "5",
	}
	for k, v := range overrides {
		defaults[k] = v
	}

	row := make([]string, len(RawHeader))
	for i, col := range RawHeader {
		row[i] = defaults[col]
	}
	return row
}

// RawCSV renders a raw snapshot with n sequentially numbered valid rows
// followed by any extra rows.
func RawCSV(n int, extra ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(RawHeader, ","))
	b.WriteString("\n")
	for i := 1; i <= n; i++ {
		writeRecord(&b, RawRow(i, nil))
	}
	for _, row := range extra {
		writeRecord(&b, row)
	}
	return b.String()
}

// WriteRawCSV writes a raw snapshot into dir and returns its path.
func WriteRawCSV(t testing.TB, dir string, n int, extra ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, "hr_raw.csv")
	if err := os.WriteFile(path, []byte(RawCSV(n, extra...)), 0o644); err != nil {
		t.Fatalf("failed to write raw fixture: %v", err)
	}
	return path
}

func writeRecord(b *strings.Builder, row []string) {
	for i, cell := range row {
		if i > 0 {
			b.WriteString(",")
		}
		if strings.ContainsAny(cell, ",\"\n") {
			b.WriteString(`"` + strings.ReplaceAll(cell, `"`, `""`) + `"`)
		} else {
			b.WriteString(cell)
		}
	}
	b.WriteString("\n")
}
